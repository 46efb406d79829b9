package keypackage

import (
	"errors"
	"fmt"
)

var (
	ErrCiphersuiteSignatureSchemeMismatch = errors.New("keypackage: ciphersuite and signature scheme mismatch")
	ErrDuplicateExtension                 = errors.New("keypackage: duplicate extension")
	ErrInvalidSignature                   = errors.New("keypackage: invalid signature")
	ErrExtensionValidationFailed          = errors.New("keypackage: extension validation failed")
	ErrMissingExtension                   = errors.New("keypackage: missing extension")
	// ErrNoCiphersuite also matches ErrCiphersuiteSignatureSchemeMismatch.
	ErrNoCiphersuite = fmt.Errorf("%w: no candidate ciphersuite", ErrCiphersuiteSignatureSchemeMismatch)
)
