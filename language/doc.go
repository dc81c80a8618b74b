// Package language defines the supported-language registry for the voice
// assistant platform. A LanguageConfig describes one language's capability
// surface (speech-to-text, text-to-speech, translation), its voice catalog,
// and an optional fallback language used when the requested language is not
// currently supported.
//
// The Registry is a read-mostly in-memory cache. Durable configuration lives
// in a relational table (see the supastore subpackage) or a JSON seed file;
// either source can atomically replace the registry contents at runtime.
//
// # Fallback resolution
//
// Resolve walks the fallback chain until it finds a supported language,
// bounded at a fixed depth so misconfigured chains fail loudly at
// registration time (ErrFallbackCycle) rather than looping per request.
package language
