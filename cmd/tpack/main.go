// Command tpack is the thin CLI entry point spec.md §1 scopes out as
// "CLI glue": it wires internal/config, internal/build,
// internal/resolver, internal/watch, and internal/devserver into a
// buildable program, but owns no bundler logic of its own.
package main

func main() {
	Execute()
}
