package workflow

import (
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Azure/cmdpilot/internal/rollbacklog"
)

// fileMutation is a shell command's filesystem effect as detected by a
// conservative, verb-based heuristic, so the Rollback Log can record
// compensating Operation Records instead of a bare execute_command audit
// entry (spec §8 Scenario 6).
type fileMutation struct {
	kind   rollbacklog.OpKind
	path   string
	source string
	dest   string
}

var reTrailingRedirect = regexp.MustCompile(`>{1,2}\s*(\S+)\s*$`)

// detectFileMutation recognizes mkdir/touch/rm/cp/mv and trailing shell
// redirection. It is deliberately conservative: anything it does not
// recognize falls back to an execute_command audit entry rather than a
// guessed, possibly wrong, compensating action.
func detectFileMutation(cmd string) (fileMutation, bool) {
	trimmed := strings.TrimSpace(cmd)

	if m := reTrailingRedirect.FindStringSubmatch(trimmed); m != nil {
		return fileMutation{kind: rollbacklog.OpWriteFile, path: m[1]}, true
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return fileMutation{}, false
	}
	args := nonFlagFields(fields[1:])

	switch fields[0] {
	case "mkdir":
		if len(args) >= 1 {
			return fileMutation{kind: rollbacklog.OpCreateDirectory, path: args[len(args)-1]}, true
		}
	case "touch":
		if len(args) >= 1 {
			return fileMutation{kind: rollbacklog.OpCreateFile, path: args[len(args)-1]}, true
		}
	case "rm":
		if len(args) >= 1 {
			return fileMutation{kind: rollbacklog.OpDeleteFile, path: args[len(args)-1]}, true
		}
	case "cp":
		if len(args) >= 2 {
			return fileMutation{kind: rollbacklog.OpCopyFile, source: args[len(args)-2], dest: args[len(args)-1]}, true
		}
	case "mv":
		if len(args) >= 2 {
			return fileMutation{kind: rollbacklog.OpMoveFile, source: args[len(args)-2], dest: args[len(args)-1]}, true
		}
	}
	return fileMutation{}, false
}

func nonFlagFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !strings.HasPrefix(f, "-") {
			out = append(out, f)
		}
	}
	return out
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// preparedFileOp captures the filesystem state a dispatched command's
// mutation target was in before the command ran, along with a pre-image
// backup when the target already existed. It is built before the command
// runs, since the information it captures is gone after an overwrite or
// delete.
type preparedFileOp struct {
	mutation      fileMutation
	detected      bool
	existedBefore bool
	backupID      string
}

// prepareFileMutation inspects cmd for a recognizable file mutation and
// backs up any pre-image it would destroy. tx may be nil when no rollback
// transaction is active, in which case detection is skipped entirely.
func prepareFileMutation(tx *rollbacklog.Transaction, cmd string) preparedFileOp {
	if tx == nil {
		return preparedFileOp{}
	}
	m, ok := detectFileMutation(cmd)
	if !ok {
		return preparedFileOp{}
	}
	p := preparedFileOp{mutation: m, detected: true}

	switch m.kind {
	case rollbacklog.OpCreateDirectory, rollbacklog.OpCreateFile:
		p.existedBefore = pathExists(m.path)
	case rollbacklog.OpWriteFile, rollbacklog.OpDeleteFile:
		if pathExists(m.path) {
			p.existedBefore = true
			if id, err := tx.BackupFile(uuid.NewString(), m.path); err == nil {
				p.backupID = id
			}
		}
	case rollbacklog.OpCopyFile:
		p.existedBefore = pathExists(m.dest)
	}
	return p
}

// finalizeFileMutation turns a preparedFileOp and the command's outcome into
// the Operation Record to append. A failed command, an undetected mutation,
// or a mutation whose pre-state doesn't support a confident compensating
// action all fall back to a plain execute_command audit entry.
func finalizeFileMutation(p preparedFileOp, cmd string, success bool) rollbacklog.Operation {
	if !p.detected || !success {
		return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
	}

	m := p.mutation
	switch m.kind {
	case rollbacklog.OpCreateDirectory:
		if p.existedBefore {
			return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
		}
		return rollbacklog.Operation{Kind: rollbacklog.OpCreateDirectory, Path: m.path, CreatedByMe: true}
	case rollbacklog.OpCreateFile:
		if p.existedBefore {
			return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
		}
		return rollbacklog.Operation{Kind: rollbacklog.OpCreateFile, Path: m.path}
	case rollbacklog.OpWriteFile:
		if !p.existedBefore {
			// the target didn't exist before the redirect, so this command
			// created it outright; reverse is a plain delete.
			return rollbacklog.Operation{Kind: rollbacklog.OpCreateFile, Path: m.path}
		}
		return rollbacklog.Operation{Kind: rollbacklog.OpWriteFile, Path: m.path, BackupID: p.backupID}
	case rollbacklog.OpDeleteFile:
		if !p.existedBefore {
			return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
		}
		return rollbacklog.Operation{Kind: rollbacklog.OpDeleteFile, Path: m.path, BackupID: p.backupID}
	case rollbacklog.OpMoveFile:
		return rollbacklog.Operation{Kind: rollbacklog.OpMoveFile, Source: m.source, Dest: m.dest}
	case rollbacklog.OpCopyFile:
		if p.existedBefore {
			// reverse() only knows how to delete a copy's destination, not
			// restore what it overwrote, so don't claim a copy_file record
			// here: fall back to audit-only.
			return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
		}
		return rollbacklog.Operation{Kind: rollbacklog.OpCopyFile, Source: m.source, Dest: m.dest}
	default:
		return rollbacklog.Operation{Kind: rollbacklog.OpExecuteCommand, Command: cmd}
	}
}
