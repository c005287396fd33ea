package session

import (
	goerrors "errors"

	"github.com/go-playground/validator/v10"

	"github.com/btsledger/ledger-bts-go/pkg/derivationpath"
)

var (
	validate = validator.New()
)

func init() {
	err := validate.RegisterValidation("derivationpath", isDerivationPath)
	if err != nil {
		panic(err)
	}
}

func validateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err != nil {
		errs := err.(validator.ValidationErrors)
		return goerrors.Join(errs)
	}
	return nil
}

func isDerivationPath(fl validator.FieldLevel) bool {
	_, err := derivationpath.Parse(derivationpath.Normalize(fl.Field().String()))
	return err == nil
}
