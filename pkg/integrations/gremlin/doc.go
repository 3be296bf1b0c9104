// Package gremlin provides access to the graph metadata store over its
// Gremlin HTTP endpoint.
//
// One query per (ecosystem, name, version) triple selects the version
// vertex and its owning package vertex and returns both property maps.
// Responses are cached; the store's records change rarely, so cached
// reads dominate in batch aggregations.
//
// Package names and versions become string literals inside the Gremlin
// query, so every input is validated before interpolation and quote
// characters are rejected outright.
package gremlin
