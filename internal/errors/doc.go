// Package errors provides structured, actionable error messages for navstack.
//
// The errors package:
//   - Maps router faults to stable error codes
//   - Points at the offending byte of a malformed route pattern
//   - Shows config file positions with surrounding lines
//   - Links to documentation for deeper understanding
//
// # Error Categories
//
// Errors are organized into categories:
//   - routing: Route table and resolution errors (E100-E119)
//   - config: Route table loading and watching errors (E120-E129)
//   - guard: Guard expression errors (E130-E139)
//   - cli: Command line errors (E140-E149)
//
// # Usage
//
//	_, err := router.Compile(routes)
//	if err != nil {
//	    errors.PrintError(err)
//	}
//	// Output:
//	// ERROR E100: Malformed route pattern
//	//
//	//     /family/:fid(
//	//                 ^
//	//
//	//   unbalanced parentheses in expression for :fid
//	//
//	//   Learn more: https://navstack.dev/docs/errors/E100
package errors
