package sendstream

// Attribute type codes as defined by the kernel wire format.
// See fs/btrfs/send.h.
type AttributeType uint16

const (
	AttrUnspec AttributeType = iota

	// Version 1
	AttrUUID
	AttrCtransid
	AttrIno
	AttrSize
	AttrMode
	AttrUID
	AttrGID
	AttrRdev
	AttrCtime
	AttrMtime
	AttrAtime
	AttrOtime
	AttrXattrName
	AttrXattrData
	AttrPath
	AttrPathTo
	AttrPathLink
	AttrFileOffset
	// As of send stream v2 this attribute is special: it must be the last
	// attribute in a command, its header carries only the type, and its
	// length is implicitly the remaining length of the command.
	AttrData
	AttrCloneUUID
	AttrCloneCtransid
	AttrClonePath
	AttrCloneOffset
	AttrCloneLen

	// Version 2
	AttrFallocateMode
	AttrSetflagsFlags
	AttrUnencodedFileLen
	AttrUnencodedLen
	AttrUnencodedOffset
	AttrCompression
	AttrEncryption
)

// CompressionZstd is the BTRFS_ENCODED_IO_COMPRESSION_ZSTD value carried in
// the AttrCompression attribute of encoded writes.
const CompressionZstd uint32 = 0x2

var attributeTypeNames = map[AttributeType]string{
	AttrUnspec:           "unspec",
	AttrUUID:             "uuid",
	AttrCtransid:         "ctransid",
	AttrIno:              "ino",
	AttrSize:             "size",
	AttrMode:             "mode",
	AttrUID:              "uid",
	AttrGID:              "gid",
	AttrRdev:             "rdev",
	AttrCtime:            "ctime",
	AttrMtime:            "mtime",
	AttrAtime:            "atime",
	AttrOtime:            "otime",
	AttrXattrName:        "xattr_name",
	AttrXattrData:        "xattr_data",
	AttrPath:             "path",
	AttrPathTo:           "path_to",
	AttrPathLink:         "path_link",
	AttrFileOffset:       "file_offset",
	AttrData:             "data",
	AttrCloneUUID:        "clone_uuid",
	AttrCloneCtransid:    "clone_ctransid",
	AttrClonePath:        "clone_path",
	AttrCloneOffset:      "clone_offset",
	AttrCloneLen:         "clone_len",
	AttrFallocateMode:    "fallocate_mode",
	AttrSetflagsFlags:    "setflags_flags",
	AttrUnencodedFileLen: "unencoded_file_len",
	AttrUnencodedLen:     "unencoded_len",
	AttrUnencodedOffset:  "unencoded_offset",
	AttrCompression:      "compression",
	AttrEncryption:       "encryption",
}

func (attributeType AttributeType) String() string {
	if name, ok := attributeTypeNames[attributeType]; ok {
		return name
	}
	return "unknown"
}

// IsSizelessIn reports whether the attribute is encoded without a length
// field in the given protocol version.
func (attributeType AttributeType) IsSizelessIn(version Version) bool {
	return attributeType == AttrData && version >= SendVersion2
}
