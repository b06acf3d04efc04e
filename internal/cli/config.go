package cli

import (
	"encoding/json"

	"taskdesk/internal/config"
	"taskdesk/internal/format"

	"github.com/spf13/cobra"
)

// settings is the resolved configuration plus where the file lives.
type settings struct {
	Path   string
	Values *config.Config
}

func (s settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path     string `json:"path"`
		APIURL   string `json:"api_url"`
		StateDir string `json:"state_dir"`
		LogLevel string `json:"log_level"`
		Timeout  string `json:"timeout"`
	}{s.Path, s.Values.APIURL, s.Values.StateDir, s.Values.LogLevel, s.Values.Timeout})
}

func (s settings) Table() format.Table {
	t := format.Table{Headers: []string{"Key", "Value"}}
	for _, k := range config.Keys {
		v, _ := s.Values.Get(k)
		t.Rows = append(t.Rows, []string{k, v})
		t.Struck = append(t.Struck, false)
	}
	return t
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persistent settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings (flags > env > file > defaults)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return writeErr(cmd, errUsage("config show takes no arguments"))
			}
			path, err := config.Path()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: settings{Path: path, Values: app.cfg}})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Write one setting to the config file (empty VALUE clears it)",
		Long:  "Keys: api_url, state_dir, log_level, timeout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return writeErr(cmd, errUsage("expected KEY VALUE"))
			}
			// Only the file is rewritten; env and flag values never leak into it.
			file, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := file.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, usageError{err})
			}
			if err := file.Save(); err != nil {
				return writeErr(cmd, err)
			}
			path, _ := config.Path()
			app.log.Info("config saved", "path", path, "key", args[0])
			return writeOut(cmd, app, format.Envelope{Data: settings{Path: path, Values: file}})
		},
	})
	return cmd
}
