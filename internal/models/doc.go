// Package models defines the domain entities of the song-of-the-week service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [SearchResult] : A track returned by the catalog search, validated at the boundary
//   - [Image] : Album artwork in one resolution
//   - [Member] : The signed-in group member as reported by the identity provider
//
// 2. Persistent Entities: Rows in the relational store
//   - [Submission] : A pending pick for the current week, unique per member and period
//   - [ArchiveEntry] : A settled weekly pick, annotated with its ISO week when read
//
// Persistent entities validate themselves before insert, and [SubmissionStore] and [ArchiveStore] describe the store operations used by the workflow.
package models
