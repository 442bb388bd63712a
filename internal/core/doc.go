// Package core provides the business logic of the attribute matrix.
//
// The matrix is a table of named rows (formulas) and named columns (criteria)
// with an integer cell at every intersection, plus named axis settings that
// bind four criteria to the ends of two chart axes. This package owns the
// consistency rules between them and is independent of any transport: web
// handlers, the matrixctl CLI and tests all drive the same [Service].
//
// # Consistency
//
// Every operation runs inside exactly one store transaction:
//
//   - Adding a row or a column fills a zero cell for every existing column or
//     row, so the matrix stays logically dense.
//   - Deleting a row or a column deletes its cells first, then the row or
//     column itself.
//   - An import reconciles columns, then rows, then cells, all or nothing.
//
// Readers treat a missing cell as 0 ([Service.RenderTable] densifies at read
// time), and [Service.SetCell] recreates a missing cell on write.
//
// # Errors
//
// Operations return errors classified into four kinds: [ErrInvalidInput],
// [ErrNotFound], [ErrDuplicateName] and [ErrInternal]. Use [KindOf] to pick a
// response and [MapError] to obtain a message that is safe to show a client.
//
// # Spell
//
// A row's spell is recomputed from its name on creation and on rename only.
// Derivation failures degrade to an empty spell and a warning log; they never
// fail the surrounding operation.
package core
