// Command justbash is a minimal CLI wrapper around the bash package, used
// by integration tests to drive the interpreter as an external process
// rather than through Go API calls.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/bash"
	"github.com/vercel-labs/just-bash-sub005/fileutil"
	"github.com/vercel-labs/just-bash-sub005/vfs"
)

func main() {
	os.Exit(main1())
}

func main1() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: justbash <script.sh> [args...]")
		return 2
	}

	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "justbash:", err)
		return 1
	}
	if !fileutil.HasShebang(src) && !strings.HasSuffix(os.Args[1], ".sh") && !strings.HasSuffix(os.Args[1], ".bash") {
		fmt.Fprintf(os.Stderr, "justbash: warning: %s has no bash shebang or .sh/.bash extension\n", os.Args[1])
	}

	cwd, _ := os.Getwd()
	sh, err := bash.New(bash.Options{
		FS:  vfs.NewDiskFS(cwd),
		Cwd: cwd,
		Env: envMap(os.Environ()),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "justbash:", err)
		return 1
	}

	res, err := sh.Exec(context.Background(), string(src), bash.ExecOptions{RawScript: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "justbash:", err)
	}
	io.WriteString(os.Stdout, res.Stdout)
	io.WriteString(os.Stderr, res.Stderr)
	return res.ExitCode
}

func envMap(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
