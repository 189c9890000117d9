// Command flowgraph edits, checks and serves flow graphs.
package main

func main() {
	Execute()
}
