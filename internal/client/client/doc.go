// Package client contains the device-side building blocks that talk to the
// scouting server.
//
// # Overview
//
//  1. A transport-agnostic contract (see the Client interface) covering the
//     calls the sync agent makes: Ping, bulk observation upload, the change
//     feed and the photo upload handshake.
//  2. A gRPC implementation (see GRPCClient) that manages a connection and
//     attaches the access token and device headers to every call through an
//     interceptor, then maps transport failures to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) opening the
//     SQLite store and applying the embedded goose migrations.
//
// # Error Handling
//
// Connectivity and credential problems surface as ErrUnavailable and
// ErrUnauthorized; match them with errors.Is. Other server errors keep their
// gRPC status so callers can inspect the code.
package client
