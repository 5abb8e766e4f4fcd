// Package diag builds the diagnostic logger that debugit components use for
// their own failures. Nothing here is on the application's logging path:
// sink errors, relay connect/disconnect and rejected viewers are reported
// through a [*slog.Logger] created by [NewHandler] and rate-limited by
// [Reporter].
package diag
