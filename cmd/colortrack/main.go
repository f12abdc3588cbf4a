// Command colortrack tracks color-outlined targets in a video feed and
// drives a pointer toward them with humanized motion.
package main

import "github.com/teslashibe/colortrack/internal/cli"

func main() {
	cli.Execute()
}
