package scenarios

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/buckleypaul/pshtest/internal/ansi"
	"github.com/buckleypaul/pshtest/internal/psh"
)

const rootTestDir = "test_ls_rootfs_dir"

// Shell builtins with no /bin entry.
var notInBin = map[string]bool{"history": true, "exit": true}

func init() {
	register(Suite{
		Name:        "ls-rootfs",
		Description: "ls on a target with a root file system: layout, ordering, /bin contents",
		Run:         runLsRootfs,
	})
}

func runLsRootfs(ctx context.Context, s *psh.Session) error {
	if err := s.AssertPrompt(ctx, ""); err != nil {
		return err
	}
	if err := s.MkdirFresh(ctx, rootTestDir); err != nil {
		return err
	}

	// Targets without a root file system have too many internal
	// directories for these two.
	if err := lsMulti(ctx, s); err != nil {
		return err
	}
	if err := lsExtraLong(ctx, s); err != nil {
		return err
	}

	cmds, err := s.Commands(ctx)
	if err != nil {
		return err
	}
	if err := lsByTime(ctx, s); err != nil {
		return err
	}
	if err := lsBySize(ctx, s); err != nil {
		return err
	}
	return lsBinComplete(ctx, s, cmds)
}

func lsMulti(ctx context.Context, s *psh.Session) error {
	dir := rootTestDir + "/multi"
	steps := []step{{"mkdir " + dir, psh.NoOutput(), "Wrong output when creating test directory for multiple files"}}
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("%s/file%d", dir, i)
		steps = append(steps, step{"touch " + path, psh.NoOutput(), "Wrong output when creating " + path})
	}
	// At least two rows; their content is not checked.
	steps = append(steps, step{"ls " + dir, psh.Regex(`([^\r\n]+(\r+\n)){2,}`), "Multiple files weren't listed in two or more rows"})
	return run(ctx, s, steps...)
}

func lsExtraLong(ctx context.Context, s *psh.Session) error {
	dir := rootTestDir + "/long"
	// Longer than the 80 column terminal. The shell may wrap it with
	// cursor movement but never with a line break.
	name := strings.Repeat("loremipsum", 9)
	listed := ansi.Around(regexp.QuoteMeta(name), ansi.Optional) + s.Config().EOL

	return run(ctx, s,
		step{"mkdir " + dir, psh.NoOutput(), "Wrong output when creating test directory for long file"},
		step{"touch " + dir + "/" + name, psh.NoOutput(), "Wrong output when creating file: " + name},
		step{"ls " + dir, psh.Regex(listed), "Extra long file name hasn't been printed properly!"},
	)
}

func lsByTime(ctx context.Context, s *psh.Session) error {
	const (
		msgDate  = "Wrong output when setting date!"
		msgTouch = "Wrong output when creating file!"
		msgMkdir = "Wrong output when creating directory!"
	)
	datePattern := psh.Regex(`\w{3},\s+\d{2}\s+\w{3}\s+\d{2}\s+\d{2}:\d{2}:\d{2}` + s.Config().EOL)
	order := `.*?file_created_last.*?dir_created_second.*?file_created_earliest.*?` + s.Config().EOL

	return run(ctx, s,
		step{"date -s @160000000", datePattern, msgDate},
		step{"touch " + rootTestDir + "/file_created_earliest", psh.NoOutput(), msgTouch},
		step{"date -s @162000000", datePattern, msgDate},
		step{"mkdir " + rootTestDir + "/dir_created_second", psh.NoOutput(), msgMkdir},
		step{"date -s @164000000", datePattern, msgDate},
		step{"touch " + rootTestDir + "/file_created_last", psh.NoOutput(), msgTouch},
		step{"ls -t " + rootTestDir, psh.Regex(order), "files are not printed in the correct order when calling `ls -t`"},
	)
}

func lsBySize(ctx context.Context, s *psh.Session) error {
	// psh is the largest file in /bin and an empty file is among the
	// smallest, with any number of rows between them.
	order := `(?s).*?psh` + psh.Separator + `.*?empty_file` + psh.Separator

	return run(ctx, s,
		step{"touch /bin/empty_file", psh.NoOutput(), "Wrong output when creating empty file!"},
		step{"ls -1S /bin", psh.Regex(order), "Wrong output, when calling `ls -1S`"},
	)
}

func lsBinComplete(ctx context.Context, s *psh.Session, cmds []string) error {
	var want []string
	for _, c := range cmds {
		if !notInBin[c] {
			want = append(want, c)
		}
	}

	const cmd = "ls bin"
	seen, err := s.ListContains(ctx, cmd, want)
	if err != nil {
		return err
	}

	var missing []string
	for _, c := range want {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &psh.AssertionError{
		Msg:      "Not all psh commands from help are listed in /bin!\nMissing commands: " + strings.Join(missing, ", "),
		Cmd:      cmd,
		Expected: strings.Join(want, " "),
		Actual:   strings.Join(keys(seen), " "),
		Err:      psh.ErrMismatch,
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
