// Package app composes the iCook domain services over a storage backend.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application and per-request Scope
//	├── domain/             # Entity models (user, post, comment)
//	├── storage/            # Store interfaces, sentinel errors
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   └── postgres/       # PostgreSQL implementation, migrations
//	├── services/           # users, posts, comments, feed
//	├── httpapi/            # HTTP handlers, routing and middleware
//	├── metrics/            # Prometheus collectors
//	└── runtime/            # Process wiring and server lifecycle
//
// # Request Scope
//
// Every request opens a Scope, which acquires one storage session and builds
// the services over it. The handler closes the scope when it returns, so the
// session is released on every path:
//
//	scope, err := application.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer scope.Close()
//
// Services never hold state between calls. Cross-entity checks (a post's
// author, a comment's post) go through the stores of the same session.
//
// # Dependency Direction
//
//	cmd/icook/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/app (Scope)
//	                                                      │
//	                                                      ▼
//	                                             internal/app/services
//	                                                      │
//	                                                      ▼
//	                                             internal/app/storage
package app
