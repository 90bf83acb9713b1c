package sigverify

import "errors"

// ErrSignatureInvalid is returned when no trusted key validates the package.
var ErrSignatureInvalid = errors.New("sigverify: signature does not match any trusted key")

// ErrNoTrustedKeys is returned when the trusted-keys file contains no usable keys.
var ErrNoTrustedKeys = errors.New("sigverify: no trusted keys loaded")
