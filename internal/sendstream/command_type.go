package sendstream

// Command type codes as defined by the kernel wire format.
// See fs/btrfs/send.h.
type CommandType uint16

const (
	CmdUnspec CommandType = iota

	// Version 1
	CmdSubvol
	CmdSnapshot
	CmdMkfile
	CmdMkdir
	CmdMknod
	CmdMkfifo
	CmdMksock
	CmdSymlink
	CmdRename
	CmdLink
	CmdUnlink
	CmdRmdir
	CmdSetXattr
	CmdRemoveXattr
	CmdWrite
	CmdClone
	CmdTruncate
	CmdChmod
	CmdChown
	CmdUtimes
	CmdEnd
	CmdUpdateExtent

	// Version 2
	CmdFallocate
	CmdSetflags
	CmdEncodedWrite

	maxCommandTypeV1 = CmdUpdateExtent
	maxCommandTypeV2 = CmdEncodedWrite
)

var commandTypeNames = map[CommandType]string{
	CmdUnspec:       "unspec",
	CmdSubvol:       "subvol",
	CmdSnapshot:     "snapshot",
	CmdMkfile:       "mkfile",
	CmdMkdir:        "mkdir",
	CmdMknod:        "mknod",
	CmdMkfifo:       "mkfifo",
	CmdMksock:       "mksock",
	CmdSymlink:      "symlink",
	CmdRename:       "rename",
	CmdLink:         "link",
	CmdUnlink:       "unlink",
	CmdRmdir:        "rmdir",
	CmdSetXattr:     "set_xattr",
	CmdRemoveXattr:  "remove_xattr",
	CmdWrite:        "write",
	CmdClone:        "clone",
	CmdTruncate:     "truncate",
	CmdChmod:        "chmod",
	CmdChown:        "chown",
	CmdUtimes:       "utimes",
	CmdEnd:          "end",
	CmdUpdateExtent: "update_extent",
	CmdFallocate:    "fallocate",
	CmdSetflags:     "setflags",
	CmdEncodedWrite: "encoded_write",
}

func (commandType CommandType) String() string {
	if name, ok := commandTypeNames[commandType]; ok {
		return name
	}
	return "unknown"
}

// IsKnownIn reports whether the command type code exists in the given
// protocol version.
func (commandType CommandType) IsKnownIn(version Version) bool {
	switch {
	case version <= SendVersion1:
		return commandType <= maxCommandTypeV1
	default:
		return commandType <= maxCommandTypeV2
	}
}

// IsAppendable reports whether adjacent commands of this type may be merged
// into a single larger command.
func (commandType CommandType) IsAppendable() bool {
	return commandType == CmdWrite
}

// IsPaddable reports whether the data payload of this command type may be
// aligned with dummy pad commands.
func (commandType CommandType) IsPaddable() bool {
	return commandType == CmdWrite
}

// IsCompressibleIn reports whether this command type can be rewritten into an
// encoded write under the given destination version.
func (commandType CommandType) IsCompressibleIn(version Version) bool {
	return commandType == CmdWrite && version >= SendVersion2
}
