// Package websocket implements delivery.Transport over gorilla/websocket.
//
// A Hub keeps the live connections of every subscribed user keyed by
// delivery address. Send fans a payload out to all of that user's
// connections; a user with no open connection is silently skipped since the
// notification is already persisted and will be listed on the next fetch.
package websocket
