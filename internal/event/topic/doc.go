// Package topic provides hierarchical event keys and wildcard pattern
// matching for the event bus.
//
// Topics use dot notation ("auth.login", "api.request.completed").
// Subscription patterns may include wildcards:
//
//	auth.*       - matches auth.login, auth.logout (exactly one segment)
//	api.**       - matches api.request, api.request.completed (any depth)
//	*.completed  - matches api.completed, task.completed
//
// The Matcher indexes patterns in a segment trie so that matching a
// published topic against thousands of patterns stays cheap.
package topic
