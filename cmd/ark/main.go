// Command ark is the entry point for the Ark toolchain.
package main

func main() {
	Execute()
}
