package rebrand

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/tc-hib/winres"
	"github.com/tc-hib/winres/version"

	"github.com/aebs/aebs/internal/icon"
)

// VersionStrings are the version-info fields written into a Windows
// executable. Empty fields are left untouched.
type VersionStrings struct {
	CompanyName     string
	FileDescription string
	LegalCopyright  string
	ProductName     string
	FileVersion     string
	ProductVersion  string
}

func (v VersionStrings) pairs() [][2]string {
	return [][2]string{
		{"CompanyName", v.CompanyName},
		{"FileDescription", v.FileDescription},
		{"LegalCopyright", v.LegalCopyright},
		{"ProductName", v.ProductName},
		{"FileVersion", v.FileVersion},
		{"ProductVersion", v.ProductVersion},
	}
}

// ResourceEditor rewrites the embedded resources of a Windows executable.
type ResourceEditor interface {
	// Edit applies strs and, when iconPath is set, replaces the main icon.
	Edit(exePath string, strs VersionStrings, iconPath string) error
}

// WinresEditor edits PE resources in place with github.com/tc-hib/winres.
type WinresEditor struct{}

func (WinresEditor) Edit(exePath string, strs VersionStrings, iconPath string) error {
	in, err := os.Open(exePath)
	if err != nil {
		return err
	}
	rs, err := winres.LoadFromEXE(in)
	if err != nil && !errors.Is(err, winres.ErrNoResources) {
		in.Close()
		return fmt.Errorf("load resources: %w", err)
	}

	vi, langs := takeVersionInfo(rs)
	for _, kv := range strs.pairs() {
		if kv[1] == "" {
			continue
		}
		for _, lang := range langs {
			if err := vi.Set(lang, kv[0], kv[1]); err != nil {
				in.Close()
				return fmt.Errorf("set %s: %w", kv[0], err)
			}
		}
	}
	// Strings first, so the version setters reuse their tables.
	if strs.FileVersion != "" {
		vi.SetFileVersion(strs.FileVersion)
	}
	if strs.ProductVersion != "" {
		vi.SetProductVersion(strs.ProductVersion)
	}
	rs.SetVersionInfo(*vi)

	if iconPath != "" {
		ico, err := icon.ReadICO(iconPath)
		if err != nil {
			in.Close()
			return err
		}
		if err := rs.SetIcon(mainIconID(rs), ico); err != nil {
			in.Close()
			return fmt.Errorf("set icon: %w", err)
		}
	}

	tmp := exePath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		in.Close()
		return err
	}
	// Any resource change invalidates an Authenticode signature.
	err = rs.WriteToEXE(out, in, winres.WithAuthenticode(winres.RemoveSignature))
	in.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write executable: %w", err)
	}
	if err := os.Rename(tmp, exePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// takeVersionInfo removes every version resource from rs and returns their
// merged content along with the string-table languages it uses, falling
// back to en-US for an executable without one.
func takeVersionInfo(rs *winres.ResourceSet) (*version.Info, []uint16) {
	type slot struct {
		id   winres.Identifier
		lang uint16
	}
	var (
		slots []slot
		first *version.Info
	)
	translations := map[uint16]*version.Info{}
	rs.WalkType(winres.RT_VERSION, func(id winres.Identifier, lang uint16, data []byte) bool {
		slots = append(slots, slot{id, lang})
		parsed, err := version.FromBytes(data)
		if err != nil {
			return true
		}
		if first == nil {
			first = parsed
		}
		for tl, tr := range parsed.SplitTranslations() {
			if _, ok := translations[tl]; !ok {
				translations[tl] = tr
			}
		}
		return true
	})
	for _, s := range slots {
		rs.Set(winres.RT_VERSION, s.id, s.lang, nil)
	}

	if len(translations) == 0 {
		if first == nil {
			first = &version.Info{}
		}
		return first, []uint16{version.LangDefault}
	}
	vi := version.MergeTranslations(translations)
	langs := make([]uint16, 0, len(translations))
	for tl := range translations {
		langs = append(langs, tl)
	}
	slices.Sort(langs)
	return vi, langs
}

// mainIconID returns the first icon group of the executable, which Windows
// uses as the application icon.
func mainIconID(rs *winres.ResourceSet) winres.Identifier {
	var id winres.Identifier = winres.ID(1)
	rs.WalkType(winres.RT_GROUP_ICON, func(resID winres.Identifier, _ uint16, _ []byte) bool {
		id = resID
		return false
	})
	return id
}
