// Command funsql compiles a YAML-described FunSQL query tree to SQL text.
package main

func main() {
	Execute()
}
