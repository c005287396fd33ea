// Package pcsc talks to a device exposed as a smart card through PC/SC.
package pcsc

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ebfe/scard"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const zeroTimeout = 0

var (
	ErrNoPCSC     = errors.New("PC/SC not available")
	ErrNoReader   = errors.New("no smart card reader found")
	ErrNoCard     = errors.New("no card present")
	ErrCardClosed = errors.New("card connection closed")
)

// noPCSC keeps both ErrNoPCSC and the scard error in the chain.
func noPCSC(err error) error {
	return fmt.Errorf("%w: %w", ErrNoPCSC, err)
}

func IsSCardError(err error) bool {
	var e scard.Error
	return errors.As(err, &e)
}

type transmission struct {
	command []byte
	reply   chan result
}

type result struct {
	data []byte
	err  error
}

// Card owns a PC/SC context and card handle. All card I/O happens on one
// locked OS thread.
type Card struct {
	reader   string
	logger   *zap.Logger
	transmit chan transmission
	done     chan struct{}
	stop     sync.Once
}

// Open connects to the first reader with a card present whose name contains
// readerHint.
func Open(readerHint string, logger *zap.Logger) (*Card, error) {
	c := &Card{
		logger:   logger.Named("pcsc"),
		transmit: make(chan transmission),
		done:     make(chan struct{}),
	}

	connected := make(chan error)
	go c.run(readerHint, connected)

	if err := <-connected; err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Card) run(readerHint string, connected chan<- error) {
	// Communication with the card must be done in a fixed thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cardCtx, err := scard.EstablishContext()
	if err != nil {
		connected <- noPCSC(err)
		return
	}
	defer func() {
		if err := cardCtx.Release(); err != nil {
			c.logger.Error("failed to release context", zap.Error(err))
		}
	}()

	card, err := c.connect(cardCtx, readerHint)
	if err != nil {
		connected <- err
		return
	}
	defer func() {
		if err := card.Disconnect(scard.LeaveCard); err != nil {
			c.logger.Error("failed to disconnect card", zap.Error(err))
		}
	}()

	close(connected)

	for {
		select {
		case <-c.done:
			return
		case t := <-c.transmit:
			data, err := card.Transmit(t.command)
			t.reply <- result{data: data, err: err}
		}
	}
}

func (c *Card) connect(cardCtx *scard.Context, readerHint string) (*scard.Card, error) {
	readers, err := cardCtx.ListReaders()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list readers")
	}

	if len(readers) == 0 {
		return nil, ErrNoReader
	}

	rs := newReadersStates(readers)
	err = cardCtx.GetStatusChange(rs, zeroTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get readers state")
	}
	rs.Update()

	c.logger.Debug("readers", zap.Strings("available", rs.Names()))

	reader, ok := rs.ReaderWithCard(readerHint)
	if !ok {
		return nil, ErrNoCard
	}

	card, err := cardCtx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to card")
	}

	c.reader = reader
	c.logger.Debug("card connected", zap.String("reader", reader))

	return card, nil
}

func (c *Card) Reader() string {
	return c.reader
}

func (c *Card) Exchange(command []byte) ([]byte, error) {
	reply := make(chan result, 1)

	select {
	case <-c.done:
		return nil, ErrCardClosed
	case c.transmit <- transmission{command: command, reply: reply}:
	}

	r := <-reply
	if r.err != nil {
		return nil, errors.Wrap(r.err, "transmit failed")
	}
	return r.data, nil
}

func (c *Card) Close() error {
	c.stop.Do(func() {
		close(c.done)
	})
	return nil
}
