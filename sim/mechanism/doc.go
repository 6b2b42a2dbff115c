// Package mechanism holds the generic higher-order constructions every domain
// assembly is built from: continuous health aging under a pluggable decay law,
// functionality composition across sub-scopes, aging components and the
// scripted-event helpers used to drive scenarios.
package mechanism
