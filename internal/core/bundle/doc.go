// Package bundle assembles the deployable artifact set for a project.
//
// This package contains the functional core logic for turning a project
// configuration into the exact file layout the execution engine consumes.
// All functions are pure (no I/O, no side effects) and deterministic: two
// bundles built from identical configuration are byte-identical, which is
// what makes content-addressing the bundle meaningful.
//
// # Layout
//
// Every bundle contains:
//
//	ro-crate-metadata.json   root metadata describing the project
//	config/project.json      derived configuration (extension parameters)
//	datasets/manifest.json   dataset name -> relative path + resolution info
//
// Projects carrying the activeLearning extension additionally contain:
//
//	workflows/al_iteration.cwl   workflow definition (rendered or user-supplied)
//	workflows/inputs.yml         run-time input mapping for the engine
//
// Dataset payloads are never fetched here; the manifest records where the
// local mirror or remote submitter must resolve them to.
package bundle
