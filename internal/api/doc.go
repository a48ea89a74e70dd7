// Package api serves the notification inbox over HTTP. It routes requests with
// chi, maps service errors to status codes without leaking internals, and
// upgrades subscribers to websockets for real-time delivery.
package api
