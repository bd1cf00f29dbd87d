/*
Package operation aggregates a whole repository into one text document.

	+-----------+     +----------+     +-----------+     +-----------+
	|  Locator  | --> |  Parser  | --> |  Walker   | --> | Formatter |
	| (string)  |     | (owner,  |     | (listing, |     | (records, |
	|           |     |  name)   |     |  reads)   |     |  document)|
	+-----------+     +----------+     +-----+-----+     +-----------+
	                                         |
	                                   +-----+-----+
	                                   |  Fetcher  |
	                                   | (GitHub)  |
	                                   +-----------+

🎯 Purpose:
- Turn a repository URL and an optional token into a Result
- Translate every failure into an *Error carrying user guidance

🔄 Flow:
1. Parse the locator; an invalid one fails before any network call
2. Build a fetcher through the configured remote.Factory
3. Walk the tree, skipping excluded paths
4. Render the document and hash it

🏃 Running:
The Runner executes any Operation. In async mode it returns as soon as the
context is cancelled, even while a request is still in flight.

🔍 Example:

	op := operation.NewFetchOperation(operation.Options{
		Locator: "https://github.com/acme/widget",
		Factory: github.Factory(github.Options{}),
	})
	if err := operation.NewRunner(&logger, true).Run(ctx, op); err != nil {
		return err
	}
	fmt.Println(op.Result().Summary())
*/
package operation
