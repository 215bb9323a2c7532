package resource

// Kind identifies which variant a Resource is.
type Kind int

const (
	// KindIllegal is returned for unparsable paths.
	KindIllegal Kind = iota

	// KindStatic is a directory with a fixed child list (the process root,
	// the hierarchy root).
	KindStatic

	KindClassList
	KindCategoryList
	KindCategory

	// KindClass is a class directory. Its children are fixed; the
	// hierarchy view adds "subclasses".
	KindClass

	KindSubclasses
	KindTraits

	// KindMethods lists every method on one side of a class: the flat
	// view's instance/ and class/ directories and every --all-- directory.
	KindMethods

	// KindProtocols lists the protocols on one side plus --all--.
	KindProtocols

	KindProtocol

	KindSuperclass
	KindComment
	KindInstanceMembers
	KindClassMembers
	KindMethod
)

var kindNames = map[Kind]string{
	KindIllegal:         "illegal",
	KindStatic:          "static",
	KindClassList:       "class_list",
	KindCategoryList:    "category_list",
	KindCategory:        "category",
	KindClass:           "class",
	KindSubclasses:      "subclasses",
	KindTraits:          "traits",
	KindMethods:         "methods",
	KindProtocols:       "protocols",
	KindProtocol:        "protocol",
	KindSuperclass:      "superclass",
	KindComment:         "comment",
	KindInstanceMembers: "instance_members",
	KindClassMembers:    "class_members",
	KindMethod:          "method",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsDir reports whether resources of this kind are directories.
func (k Kind) IsDir() bool {
	switch k {
	case KindSuperclass, KindComment, KindInstanceMembers, KindClassMembers, KindMethod, KindIllegal:
		return false
	default:
		return true
	}
}

// IsFile reports whether resources of this kind are regular files.
func (k Kind) IsFile() bool {
	return k != KindIllegal && !k.IsDir()
}
