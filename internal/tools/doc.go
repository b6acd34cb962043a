// Package tools implements the Unwind agent tools: fifteen tenant-scoped
// operations over the items, categories, tags, and completion history of a
// single user.
//
// # Groups
//
// Tools are grouped the way the agents that use them are:
//
//   - Retrieval (data agent): TodayItems, WeekItems, ItemsByCategory,
//     ItemsByTags, SearchItems, Worries, ItemDetail
//   - Aggregation (planning agent): UserStats, CompletionHistory,
//     PendingCountByPriority
//   - Reassurance: SpiralItems, RecentCompletions
//   - Mutation (every agent): MarkComplete, UpdatePriority, AppendNote
//
// Every tool takes the tenant id as a separate argument. Input records never
// carry it, so an agent cannot name another user. Each tool runs exactly one
// parameterized statement through a store.Querier and binds the tenant id in
// its WHERE clause; rows belonging to another tenant are indistinguishable
// from rows that do not exist.
//
// # Inputs
//
// Inputs are typed records validated with go-playground/validator after
// defaults are applied. Failures wrap ErrInvalidInput. The same records drive
// the JSON schemas published in the tool packs (see Packs).
//
// # Results
//
// Retrieval and aggregation tools return store.Row values. Identifier, date,
// and numeric columns are cast in SQL so rows encode to JSON without driver
// types leaking through. Mutations report true only when exactly one row
// changed.
package tools
