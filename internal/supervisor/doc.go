// Clubsync - Running Club Event Aggregation and Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clubsync

// Package supervisor builds the suture supervision tree that runs the
// long-lived parts of clubsync.
//
// The tree has two child layers under the root:
//
//	clubsync (root)
//	├── sync-layer
//	│   └── sync-manager (periodic upstream synchronization)
//	└── api-layer
//	    └── http-server (REST API)
//
// The layers isolate failures: a crashing sync run is restarted with
// backoff without taking down the HTTP server, which keeps serving
// cached responses in the meantime.
package supervisor
