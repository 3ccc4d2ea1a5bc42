package typebridge

// Package typebridge translates schemas between dialects through one
// canonical model and validates values against them.
//
// - schema/ holds the canonical model: a closed set of kinds plus options.
// - jsonschema/, tags/, syntax/ and openapi/ convert their dialect to and from it.
// - convert/ exposes variadic entry points resolved by ResolveSignature.
// - compile/ builds validators with a generated fast path and an interpreter fallback.
// - The root package keeps the shared error model (Issues, Path), Diag and the
//   standard result protocol (Standard, Result).
//
// Design policy:
// - Keep only shared vocabulary in the root package; dialect code lives in its own package.
// - Converters never fail: unmappable input becomes never, unmappable output is degraded and noted in a Diag.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  n := convert.Canonical("{ name: string, tags?: string[] }")
//  v := compile.Compile(n)
//  res := typebridge.Standard(v).Validate(input)
//  js := convert.JSONSchema(n)
//
