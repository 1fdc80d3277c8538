package ocr

import "errors"

// ErrNoIban is returned when no recognized line yields a canonical IBAN.
var ErrNoIban = errors.New("no iban detected")
