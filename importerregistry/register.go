// Package importerregistry wires the built-in importers into a registry.
// External plugins register themselves the same way before the registry is
// sealed; this package only covers the importers shipped with the pipeline.
package importerregistry

import (
	stderrors "errors"

	pkgerrors "github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importers/document"
	"github.com/radium-io/atelier-assets/importers/text"
	"github.com/radium-io/atelier-assets/registry"
)

// Register registers all built-in importers with the provided registry:
//
//   - text: plain text sources (.txt, .text)
//   - document: structured JSON documents (.json)
//
// The registry stays unsealed so the host can add plugin importers before
// calling Seal.
func Register(r *registry.Registry) error {
	if r == nil {
		return pkgerrors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"ImporterRegistry", "Register", "registry validation")
	}

	if err := text.Register(r); err != nil {
		return pkgerrors.Wrap(err, "ImporterRegistry", "Register", "text importer registration")
	}
	if err := document.Register(r); err != nil {
		return pkgerrors.Wrap(err, "ImporterRegistry", "Register", "document importer registration")
	}

	return nil
}
