// The main package for the contest-crawler executable.
package main

import "github.com/JakeFAU/contest-crawler/cmd"

func main() {
	cmd.Execute()
}
