package server

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"reflect"
	"strings"
	"time"

	"chisel/store/pkg/cluster/rpc"
	"chisel/store/version"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Mode string

const (
	DebugMode   Mode = "debug"
	ReleaseMode Mode = "release"
	TestMode    Mode = "test"
)

type Options struct {
	viper.Viper
	Mode    Mode
	NodeId  uint64 // this node
	Addr    string // rpc listen address, e.g. 0.0.0.0:11110
	RootDir string
	Logger  Logger
	Version string
	Cluster Cluster
}

type Logger struct {
	Dir      string // empty logs to stdout only
	Level    string
	LineNum  bool
	Encoding string // console or json
}

type Cluster struct {
	Nodes          []*Node       // every member, this node included
	PoolCapacity   int           // idle connections kept per peer
	ConnectTimeout time.Duration // dial timeout of outbound connections
	MailboxSize    int           // engine queue length per message family
	CORSOrigins    []string      // origins allowed to call execute from a browser
}

type Node struct {
	Id   uint64
	Addr string // rpc address, host:port
}

func GetHomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir, nil
	}
	u, err := user.Current()
	if err == nil {
		return u.HomeDir, nil
	}
	return "", fmt.Errorf("user home directory not found")
}

func DefaultOptions() *Options {
	rootDir := ".chisel"
	if homeDir, err := GetHomeDir(); err == nil {
		rootDir = path.Join(homeDir, ".chisel")
	}
	return &Options{
		Mode:    DebugMode,
		NodeId:  1,
		Addr:    "0.0.0.0:11110",
		RootDir: rootDir,
		Version: version.Version,
		Logger: Logger{
			Dir:      path.Join(rootDir, "logs"),
			Level:    "info",
			LineNum:  true,
			Encoding: "console",
		},
		Cluster: Cluster{
			PoolCapacity:   rpc.DefaultPoolCapacity,
			ConnectTimeout: time.Second * 5,
			MailboxSize:    1024,
		},
	}
}

// ConfigureWithViper overlays the "chisel" section of vp on o.
func (o *Options) ConfigureWithViper(vp *viper.Viper) error {
	o.Viper = *vp
	defaultsMap := map[string]interface{}{
		"chisel.rootDir": o.RootDir,
	}
	for param, def := range defaultsMap {
		if o.Get(param) == nil {
			o.SetDefault(param, def)
		}
	}
	if err := o.UnmarshalKey("chisel", o); err != nil {
		return err
	}
	return o.Check()
}

// Check validates the options after loading.
func (o *Options) Check() error {
	if o.NodeId == 0 {
		return fmt.Errorf("nodeId must not be 0")
	}
	if o.Cluster.PoolCapacity <= 0 {
		o.Cluster.PoolCapacity = rpc.DefaultPoolCapacity
	}
	seen := make(map[uint64]bool, len(o.Cluster.Nodes))
	for _, n := range o.Cluster.Nodes {
		if n.Id == 0 || n.Addr == "" {
			return fmt.Errorf("cluster node %v: id and addr are required", n.Id)
		}
		if seen[n.Id] {
			return fmt.Errorf("cluster node %v listed twice", n.Id)
		}
		seen[n.Id] = true
	}
	return nil
}

// AddrOf resolves a node id to its rpc address. Unknown ids resolve to "".
func (o *Options) AddrOf(id uint64) string {
	for _, n := range o.Cluster.Nodes {
		if n.Id == id {
			return n.Addr
		}
	}
	return ""
}

// AddrFunc returns a copy of the membership as an rpc.AddrFunc, fixed for
// the lifetime of the process.
func (o *Options) AddrFunc() rpc.AddrFunc {
	addrs := make(map[uint64]string, len(o.Cluster.Nodes))
	for _, n := range o.Cluster.Nodes {
		addrs[n.Id] = n.Addr
	}
	return func(id uint64) string {
		return addrs[id]
	}
}

// UnmarshalKey unmarshal key into v
func (o *Options) UnmarshalKey(key string, rawVal any, opts ...viper.DecoderConfigOption) error {
	delimiter := "."
	prefix := key + delimiter

	i := o.Get(key)
	if i == nil {
		return nil
	}
	if isStringMapInterface(i) {
		val := i.(map[string]interface{})
		keys := o.AllKeys()
		for _, k := range keys {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			mk := strings.TrimPrefix(k, prefix)
			mk = strings.Split(mk, delimiter)[0]
			if _, exists := val[mk]; exists {
				continue
			}
			mv := o.Get(key + delimiter + mk)
			if mv == nil {
				continue
			}
			val[mk] = mv
		}
		i = val
	}
	return decode(i, defaultDecoderConfig(rawVal, opts...))
}

func isStringMapInterface(val interface{}) bool {
	vt := reflect.TypeOf(val)
	return vt.Kind() == reflect.Map &&
		vt.Key().Kind() == reflect.String &&
		vt.Elem().Kind() == reflect.Interface
}

func decode(input interface{}, config *mapstructure.DecoderConfig) error {
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// defaultDecoderConfig decodes durations from strings and slices from
// comma separated strings.
func defaultDecoderConfig(output interface{}, opts ...viper.DecoderConfigOption) *mapstructure.DecoderConfig {
	c := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
