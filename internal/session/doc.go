// Package session implements the client-side conversation state machine.
//
// # Overview
//
// The Manager owns the in-memory collection of agents and, for the selected
// agent, the conversation being displayed. Every mutation — selecting an
// agent, sending a message, reconciling a reply, applying a streaming
// partial, directory CRUD — funnels through the Manager, which keeps one
// authoritative copy of each agent keyed by id. The "selected agent" is a
// reference into that collection, never a copy, so a reply reconciled into
// the collection is immediately visible in the selected view.
//
// # Send cycle
//
// A send moves through Idle -> AwaitingReply -> {Reconciled | Failed} -> Idle.
// The user message is appended optimistically and survives a failed round
// trip; the reply is reconciled against the agent id captured at send time,
// never against whichever agent happens to be selected when the call
// resolves. A second send for an agent whose reply is still pending is
// ignored. Sends to different agents proceed independently.
//
// # Rendering
//
// The rendering layer subscribes to the Notifier and redraws on change
// events. Accessors return defensive copies; the arena itself is only
// touched under the Manager's lock.
package session
