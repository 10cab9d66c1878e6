package procs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-ps"
)

// Inspector answers point-in-time questions about running processes.
type Inspector interface {
	// RunningWithArg reports whether a process with the given executable
	// name is running with the given string among its arguments.
	RunningWithArg(executable, arg string) (bool, error)
}

// TableInspector walks the system process table and reads each matching
// process's command line from procfs.
type TableInspector struct {
	// procRoot is the procfs mount point, /proc in production.
	procRoot string
}

// NewTableInspector returns an Inspector over the given procfs root; an
// empty root selects /proc.
func NewTableInspector(procRoot string) *TableInspector {
	if procRoot == "" {
		procRoot = "/proc"
	}

	return &TableInspector{procRoot: procRoot}
}

// RunningWithArg enumerates processes by executable name, then checks each
// one's command line for the argument. Processes that exit between the two
// reads are skipped.
func (i *TableInspector) RunningWithArg(executable, arg string) (bool, error) {
	processes, err := ps.Processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processes {
		if process.Executable() != executable {
			continue
		}

		cmdline, err := os.ReadFile(filepath.Join(i.procRoot, strconv.Itoa(process.Pid()), "cmdline"))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return false, fmt.Errorf("read cmdline of pid %d: %w", process.Pid(), err)
		}

		if cmdlineHasArg(cmdline, arg) {
			return true, nil
		}
	}

	return false, nil
}

// cmdlineHasArg reports whether the NUL-separated procfs command line
// contains the argument as a whole field.
func cmdlineHasArg(cmdline []byte, arg string) bool {
	for _, field := range bytes.Split(cmdline, []byte{0}) {
		if string(field) == arg {
			return true
		}
	}

	return false
}
