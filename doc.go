// Package atelier defines the import boundary of an asset-processing
// pipeline: the abstraction that turns arbitrary, heterogeneous source files
// (textures, meshes, text, documents) into structured, versioned,
// dependency-aware intermediate data for a downstream build stage.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Pipeline                 │  fingerprinting, skip/reimport,
//	│  (runner, worker pool, meta store)  │  per-path serialization
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│         Boxed Importers             │  type-erased facade over
//	│   (serialized Options/State blobs)  │  concrete importer plugins
//	└─────────────────────────────────────┘
//	           ↓ resolved via
//	┌─────────────────────────────────────┐
//	│          Type Registry              │  TypeTag → descriptor table,
//	│   (sealed before imports begin)     │  extension → importer binding
//	└─────────────────────────────────────┘
//
// Concrete importers implement the generic Importer interface in package
// importer and register under a stable 128-bit TypeTag. The host never sees
// their concrete Options and State shapes: it persists self-describing
// blobs and drives imports through the Boxed facade.
//
// Reimports are skipped when the invalidation fingerprint (importer
// identity, format version, effective options and source content hash) is
// unchanged. Bumping an importer's version invalidates every prior output
// of that importer by construction.
//
// Scheduling, file watching, content hashing and durable metadata storage
// belong to the host; this module only defines the interfaces it consumes
// them through.
package atelier
