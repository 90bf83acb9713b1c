package driver

// InstallRequest is the FSM input for one install attempt.
type InstallRequest struct {
	PackagePath string
	RetryCount  int
	NeedsMount  bool
}

// InstallResponse is the FSM output, accumulated across transitions.
type InstallResponse struct {
	Result       string
	WipeCache    bool
	SourceBuild  int64
	TargetBuild  int64
	ErrorMessage string
}

// State names for the install pipeline.
const (
	StateMapPackage      = "map_package"
	StateVerifySignature = "verify_signature"
	StateOpenArchive     = "open_archive"
	StateReadMetadata    = "read_metadata"
	StateGateCheck       = "gate_check"
	StateRunApplier      = "run_applier"
	StateComplete        = "complete"
	StateFailed          = "failed"
)

// Result is the installer's terminal classification of an attempt.
type Result int

const (
	// ResultSuccess means the applier ran to completion.
	ResultSuccess Result = iota
	// ResultCorrupt means the package is structurally or
	// cryptographically invalid.
	ResultCorrupt
	// ResultError means a policy or operational failure.
	ResultError
	// ResultRetry means the applier asked for another attempt.
	ResultRetry
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCorrupt:
		return "corrupt"
	case ResultError:
		return "error"
	case ResultRetry:
		return "retry"
	}
	return "unknown"
}

// Mounter brings the filesystem holding a package online before the
// package is mapped. The actual mount implementation is an external
// collaborator; recovery environments that pre-mount everything use
// NopMounter.
type Mounter interface {
	EnsureMounted(path string) error
}

// NopMounter is a Mounter for hosts where the package filesystem is
// already online.
type NopMounter struct{}

func (NopMounter) EnsureMounted(string) error { return nil }

// Options carries the install-side paths and switches.
type Options struct {
	// TrustedKeysPath is the trusted public key list the signature
	// verifier loads.
	TrustedKeysPath string
	// SignatureSuffix is appended to the package path to locate its
	// detached signature.
	SignatureSuffix string
	// ApplierPath is the A/B update applier binary.
	ApplierPath string
	// ScratchPath is where the legacy flow extracts the embedded
	// update binary.
	ScratchPath string
	// APIVersion is the legacy applier protocol version argument.
	APIVersion string
	// ABOTAUpdater selects the A/B flow (gate plus payload command)
	// over the legacy extract-and-run flow.
	ABOTAUpdater bool
	// InstallLogPath is where the final install log is written.
	InstallLogPath string
	// UncryptStatusPath is the status record left by the uncrypt
	// stage, folded into the install log when present.
	UncryptStatusPath string
	// MaxRetries bounds FSM state re-entry.
	MaxRetries int
}
