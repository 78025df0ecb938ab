package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func main() {
	bin, err := exec.LookPath("todograph")
	if err != nil {
		fmt.Fprintln(os.Stderr, "tg: todograph not found on PATH")
		os.Exit(1)
	}
	if err := syscall.Exec(bin, append([]string{"todograph"}, os.Args[1:]...), os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "tg: %v\n", err)
		os.Exit(1)
	}
}
