package compiler

import (
	"fmt"
	"runtime"
	"sort"
)

// Target describes the ARM64 flavour the generator emits for. Only the entry
// symbol and the system call convention differ between targets.
type Target struct {
	Name        string
	Entry       string // global entry label
	SyscallReg  string // register holding the system call number
	ExitSyscall int    // system call number of exit
	FrameSize   int    // bytes reserved by the fixed prologue
}

var (
	// TargetDarwinARM64 is the reference target: Apple silicon, linked with clang.
	TargetDarwinARM64 = Target{
		Name:        "darwin-arm64",
		Entry:       "_main",
		SyscallReg:  "w16",
		ExitSyscall: 1,
		FrameSize:   16,
	}

	// TargetLinuxARM64 emits a freestanding _start for ld.
	TargetLinuxARM64 = Target{
		Name:        "linux-arm64",
		Entry:       "_start",
		SyscallReg:  "w8",
		ExitSyscall: 93,
		FrameSize:   16,
	}
)

var targets = map[string]Target{
	TargetDarwinARM64.Name: TargetDarwinARM64,
	TargetLinuxARM64.Name:  TargetLinuxARM64,
}

// LookupTarget returns the target registered under name.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[name]
	if !ok {
		return Target{}, fmt.Errorf("unknown target %q (known: %v)", name, Targets())
	}
	return t, nil
}

// Targets lists the known target names in sorted order.
func Targets() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostTarget picks the target matching the running OS, falling back to the
// reference darwin-arm64 target.
func HostTarget() Target {
	if runtime.GOOS == "linux" {
		return TargetLinuxARM64
	}
	return TargetDarwinARM64
}
