// Package driver orchestrates one OTA install attempt as a fixed pipeline:
// map the package, verify its signature, open the archive, read and gate
// the metadata, run the applier under supervision, and assemble the
// install log. The pipeline runs as a finite state machine so each step's
// entry, retry budget, and abort semantics are explicit.
package driver

import (
	"context"

	"github.com/otacore/recovery/pkg/errors"
	"github.com/otacore/recovery/pkg/gate"
	"github.com/otacore/recovery/pkg/installlog"
	"github.com/otacore/recovery/pkg/metadata"
	"github.com/otacore/recovery/pkg/ozip"
	"github.com/otacore/recovery/pkg/pkgmap"
	"github.com/otacore/recovery/pkg/sigverify"
	"github.com/otacore/recovery/pkg/supervisor"
	"github.com/otacore/recovery/pkg/ui"
	"github.com/superfly/fsm"
)

// metadataEntry is the fixed in-archive path of the package metadata.
const metadataEntry = "META-INF/com/android/metadata"

// Error codes recorded as "error: <code>" lines in the install log.
const (
	errorCodeZipVerificationFailure = 21
	errorCodeZipOpenFailure         = 22
)

// Machine holds the dependencies and per-attempt state for the install
// FSM. One Machine drives one attempt at a time.
type Machine struct {
	verifier sigverify.Verifier
	surface  ui.UI
	mounter  Mounter
	identity gate.RuntimeIdentity
	opts     Options

	// Per-attempt state. The mapping and archive are owned by the
	// driver from their creation until release() on any exit path.
	mapping *pkgmap.Mapping
	archive ozip.Archive
	md      *metadata.Metadata
	logBuf  *installlog.Buffer
	runRes  supervisor.Result
	failure Result
}

// NewMachine creates an install machine with its dependencies.
func NewMachine(verifier sigverify.Verifier, surface ui.UI, mounter Mounter, identity gate.RuntimeIdentity, opts Options) *Machine {
	if mounter == nil {
		mounter = NopMounter{}
	}
	return &Machine{
		verifier: verifier,
		surface:  surface,
		mounter:  mounter,
		identity: identity,
		opts:     opts,
	}
}

// Register registers the install FSM with the manager.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[InstallRequest, InstallResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[InstallRequest, InstallResponse](manager, "install-package").
		Start(StateMapPackage, m.handleMapPackage).
		To(StateVerifySignature, m.handleVerifySignature).
		To(StateOpenArchive, m.handleOpenArchive).
		To(StateReadMetadata, m.handleReadMetadata).
		To(StateGateCheck, m.handleGateCheck).
		To(StateRunApplier, m.handleRunApplier).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register install FSM")
	}
	return start, resume, nil
}

// reset clears per-attempt state before a new run.
func (m *Machine) reset() {
	m.mapping = nil
	m.archive = nil
	m.md = nil
	m.logBuf = &installlog.Buffer{}
	m.runRes = supervisor.Result{}
	m.failure = ResultError
}

// release closes the archive and unmaps the package. Only handles that
// were successfully opened are touched; safe on every exit path.
func (m *Machine) release() {
	if m.archive != nil {
		m.archive.Close()
		m.archive = nil
	}
	if m.mapping != nil {
		m.mapping.Release()
		m.mapping = nil
	}
}

// fail records the classified result for the outer driver before the
// state aborts.
func (m *Machine) fail(r Result) {
	m.failure = r
}
