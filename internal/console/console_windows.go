// Package console detects how the process was started and keeps Ctrl+C
// working on Windows while SDL owns the console control handler.
package console

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"go.uber.org/zap"
)

var (
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetConsoleWindow           = kernel32.NewProc("GetConsoleWindow")
	procAllocConsole               = kernel32.NewProc("AllocConsole")
	procFreeConsole                = kernel32.NewProc("FreeConsole")
	procGetStdHandle               = kernel32.NewProc("GetStdHandle")
	procCreateToolhelp32Snapshot   = kernel32.NewProc("CreateToolhelp32Snapshot")
	procProcess32First             = kernel32.NewProc("Process32FirstW")
	procProcess32Next              = kernel32.NewProc("Process32NextW")
	procOpenProcess                = kernel32.NewProc("OpenProcess")
	procQueryFullProcessImageNameW = kernel32.NewProc("QueryFullProcessImageNameW")
	procSetConsoleCtrlHandler      = kernel32.NewProc("SetConsoleCtrlHandler")
)

const (
	th32csSnapProcess       = 0x00000002
	processQueryLimitedInfo = 0x1000
	maxPath                 = 260
	ctrlCEvent              = 0
	ctrlBreakEvent          = 1
	stdInputHandle          = ^uintptr(9)  // -10
	stdOutputHandle         = ^uintptr(10) // -11
	stdErrorHandle          = ^uintptr(11) // -12
)

type processEntry32 struct {
	Size            uint32
	Usage           uint32
	ProcessID       uint32
	DefaultHeapID   uintptr
	ModuleID        uint32
	Threads         uint32
	ParentProcessID uint32
	PriClassBase    int32
	Flags           uint32
	ExeFile         [maxPath]uint16
}

// IsRunningFromConsole reports whether the process has a terminal. A
// double-clicked executable frees the console Windows created for it and
// reports false; a GUI build started from a terminal gets a console of its
// own.
func IsRunningFromConsole() bool {
	if hasConsoleWindow() {
		if launchedFromExplorer() {
			procFreeConsole.Call()
			return false
		}
		return true
	}
	if launchedFromExplorer() {
		return false
	}
	procAllocConsole.Call()
	redirectStdStreams()
	return true
}

func hasConsoleWindow() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd != 0
}

// redirectStdStreams points os.Std* at a console allocated after start-up.
func redirectStdStreams() {
	stdout, _, _ := procGetStdHandle.Call(stdOutputHandle)
	stderr, _, _ := procGetStdHandle.Call(stdErrorHandle)
	stdin, _, _ := procGetStdHandle.Call(stdInputHandle)
	if stdout == 0 || stderr == 0 {
		return
	}
	os.Stdout = os.NewFile(stdout, "/dev/stdout")
	os.Stderr = os.NewFile(stderr, "/dev/stderr")
	if stdin != 0 {
		os.Stdin = os.NewFile(stdin, "/dev/stdin")
	}
}

func launchedFromExplorer() bool {
	parent := parentProcessID(uint32(os.Getpid()))
	if parent == 0 {
		return false
	}
	return strings.EqualFold(filepath.Base(processImageName(parent)), "explorer.exe")
}

func parentProcessID(pid uint32) uint32 {
	handle, _, _ := procCreateToolhelp32Snapshot.Call(th32csSnapProcess, 0)
	if handle == uintptr(syscall.InvalidHandle) {
		return 0
	}
	defer syscall.CloseHandle(syscall.Handle(handle))

	var entry processEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	ret, _, _ := procProcess32First.Call(handle, uintptr(unsafe.Pointer(&entry)))
	for ret != 0 {
		if entry.ProcessID == pid {
			return entry.ParentProcessID
		}
		ret, _, _ = procProcess32Next.Call(handle, uintptr(unsafe.Pointer(&entry)))
	}
	return 0
}

func processImageName(pid uint32) string {
	h, _, _ := procOpenProcess.Call(processQueryLimitedInfo, 0, uintptr(pid))
	if h == 0 {
		return ""
	}
	defer syscall.CloseHandle(syscall.Handle(h))

	var buf [maxPath]uint16
	size := uint32(maxPath)
	ret, _, _ := procQueryFullProcessImageNameW.Call(h, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:size])
}

var (
	handlerOnce sync.Once
	handlerFn   uintptr
	shutdownCh  chan struct{}
	closeOnce   sync.Once
)

// SetupConsoleHandler closes shutdown on Ctrl+C or Ctrl+Break. The
// returned function registers the handler again; call it after SDL_Init,
// which installs its own handler in front of ours.
func SetupConsoleHandler(shutdown chan struct{}, log *zap.Logger) func() {
	handlerOnce.Do(func() {
		shutdownCh = shutdown
		handlerFn = syscall.NewCallback(func(ctrlType uint32) uintptr {
			if ctrlType == ctrlCEvent || ctrlType == ctrlBreakEvent {
				closeOnce.Do(func() { close(shutdownCh) })
				return 1
			}
			return 0
		})
	})

	register := func() {
		if ret, _, _ := procSetConsoleCtrlHandler.Call(handlerFn, 1); ret == 0 {
			log.Warn("failed to set console control handler")
		}
	}
	register()
	return register
}
