// Package stream provides sources of incrementally arriving response text.
//
// A Source yields cumulative partial text for one in-flight bot response.
// The session manager applies each partial as an in-place update to the last
// bot message, so the same state machine works whether the partials come
// from the timer-driven Simulator or from a real server-sent event stream.
package stream
