package domain

const (
	// DeclFileName is the default declaration file.
	DeclFileName = "mkfile.yaml"

	// AltDeclFileName is searched when DeclFileName is absent.
	AltDeclFileName = "mkfile.yml"

	// SettingsFileName holds optional per-project settings.
	SettingsFileName = ".mkrc.yaml"

	// EnvPrefix prefixes environment overrides of settings.
	EnvPrefix = "MK_"

	// ScriptPattern names temporary job scripts.
	ScriptPattern = "mk-job-*.sh"

	// FilePerm is the default permission for touched files (rw-r--r--).
	FilePerm = 0o644
)

// DeclFileNames lists the declaration files searched, in order.
func DeclFileNames() []string {
	return []string{DeclFileName, AltDeclFileName}
}
