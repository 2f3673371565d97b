// Package limit implements the byte budgets that keep response
// accumulation bounded.
//
// # Budgets
//
// A [Limit] is an explicit bounded/unbounded byte budget. Three
// consumers build on it:
//
//   - [BodyBuffer] accumulates a response body up to its budget and
//     silently drops the excess, recording truncation.
//   - [HeaderBudget] admits headers while their aggregate name+value
//     size fits, dropping the rest.
//   - [StreamGate] clips streamed chunks to the budget and reports
//     [ErrExceeded] once the budget is spent.
//
// Truncation flags are monotone: once set they stay set for the
// lifetime of the budget.
package limit
