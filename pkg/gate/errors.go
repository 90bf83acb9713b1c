package gate

import "errors"

var (
	ErrMetadataUnreadable       = errors.New("gate: metadata unreadable")
	ErrDeviceMismatch           = errors.New("gate: package device does not match runtime device")
	ErrSerialMismatch           = errors.New("gate: package serial does not match runtime serial")
	ErrNotABPackage             = errors.New("gate: package is not an A/B package")
	ErrSourceBuildMismatch      = errors.New("gate: package source build does not match runtime build")
	ErrDowngradeNotAllowed      = errors.New("gate: package is older than the running build and downgrade is not allowed")
	ErrDowngradeMissingPreBuild = errors.New("gate: downgrade package must pin a source build")
)
