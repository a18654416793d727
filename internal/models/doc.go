// Package models defines the core domain models for Circle.
//
// # Models
//
//   - User: a registered account, owned by the auth layer
//   - Circle: a time-boxed group competition with members and tasks
//   - Member: one user's participation in a circle (score, admin flag)
//   - Invitation: a pending email invite to a circle
//   - Task: a point-valued unit of work assigned to one member
//   - Notification: a queued outbound email (outbox row)
//
// # Design Principles
//
// 1. **Stable identity**: members reference users by ID, never by display
// name. Display names are carried alongside for rendering only, so renaming
// a user cannot break membership matching.
//
// 2. **Avoid circular references**: relationships use ID strings instead of
// pointers.
//
// 3. **Unix timestamps**: all times are int64 Unix seconds; optional times
// are *int64 (nil until set).
package models
