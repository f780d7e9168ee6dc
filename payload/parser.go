package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyPayload indicates the worker wrote nothing before terminating.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrMalformedPayload indicates the worker wrote bytes that are not a valid payload.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Parser handles decoding and encoding worker payloads.
type Parser struct {
	log logrus.FieldLogger
}

// NewParser creates a new payload parser.
func NewParser(log logrus.FieldLogger) *Parser {
	return &Parser{log: log.WithField("component", "payload-parser")}
}

// Parse decodes and validates a payload.
func (p *Parser) Parse(data []byte) (*Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}

	var pl Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after payload", ErrMalformedPayload)
	}

	if err := validate(&pl); err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"status":  pl.Status,
		"elapsed": pl.Elapsed(),
	}).Debug("Parsed worker payload")

	return &pl, nil
}

// ParseReader drains r and parses its contents.
func (p *Parser) ParseReader(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return p.Parse(data)
}

// Encode serializes a payload.
func (p *Parser) Encode(pl *Payload) ([]byte, error) {
	if err := validate(pl); err != nil {
		return nil, err
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

func validate(pl *Payload) error {
	switch pl.Status {
	case StatusSuccess:
		if pl.Exception != nil {
			return fmt.Errorf("%w: success payload carries an exception", ErrMalformedPayload)
		}
	case StatusException:
		if pl.Exception == nil {
			return fmt.Errorf("%w: exception payload without exception details", ErrMalformedPayload)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrMalformedPayload, pl.Status)
	}
	if pl.ElapsedNS < 0 {
		return fmt.Errorf("%w: negative elapsed time", ErrMalformedPayload)
	}
	if pl.BaselineRSS < 0 {
		return fmt.Errorf("%w: negative baseline rss", ErrMalformedPayload)
	}
	return nil
}
