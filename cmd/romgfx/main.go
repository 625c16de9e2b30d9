package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"

	"github.com/bodgit/romgfx"
	"github.com/bodgit/romgfx/editor"
	"github.com/bodgit/romgfx/lz"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"
	xdraw "golang.org/x/image/draw"
)

const (
	paletteName = "palette"
	tilesetName = "tileset"
	imageName   = "image"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) hclog.Logger {
	level := hclog.LevelFromString(c.String("log-level"))
	if level == hclog.NoLevel {
		level = hclog.Warn
	}
	if c.Bool("verbose") {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   c.App.Name,
		Level:  level,
		Output: os.Stderr,
	})
}

func openModel(file string, logger hclog.Logger) (*romgfx.Model, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return romgfx.New(data, romgfx.WithLogger(logger)), nil
}

// register adds a run described by a format string such as "lzs4x2x2" at
// offset.
func register(m *romgfx.Model, name, format, hint string, offset int, pointers []int) (*romgfx.Run, error) {
	kind, compressed, f, err := romgfx.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if hint != "" {
		f.Hint = hint
	}
	return m.Register(nil, romgfx.Run{
		Name:       name,
		Kind:       kind,
		Compressed: compressed,
		Start:      offset,
		Format:     f,
		Pointers:   pointers,
	})
}

var imageFlags = []cli.Flag{
	&cli.IntFlag{
		Name:     "offset",
		Aliases:  []string{"o"},
		Usage:    "address of the image",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "format",
		Aliases:  []string{"f"},
		Usage:    "format of the image, e.g. lzs4x2x2",
		Required: true,
	},
	&cli.IntSliceFlag{
		Name:  "pointer",
		Usage: "address of a pointer to the image",
	},
	&cli.IntFlag{
		Name:  "tileset-offset",
		Value: -1,
		Usage: "address of the tileset used by a tilemap",
	},
	&cli.StringFlag{
		Name:  "tileset-format",
		Value: "lzt4",
		Usage: "format of the tileset",
	},
	&cli.IntSliceFlag{
		Name:  "tileset-pointer",
		Usage: "address of a pointer to the tileset",
	},
	&cli.IntFlag{
		Name:  "palette-offset",
		Value: -1,
		Usage: "address of the palette",
	},
	&cli.StringFlag{
		Name:  "palette-format",
		Value: "ucp4",
		Usage: "format of the palette",
	},
	&cli.IntSliceFlag{
		Name:  "palette-pointer",
		Usage: "address of a pointer to the palette",
	},
	&cli.IntFlag{
		Name:  "page",
		Usage: "image page",
	},
	&cli.IntFlag{
		Name:  "palette-page",
		Usage: "palette page",
	},
}

// openEditor registers the image, and any tileset and palette it uses, and
// opens an editor on it.
func openEditor(c *cli.Context, m *romgfx.Model, logger hclog.Logger) (*romgfx.History, *editor.Editor, error) {
	hint := ""
	if c.Int("palette-offset") >= 0 {
		if _, err := register(m, paletteName, c.String("palette-format"), "", c.Int("palette-offset"), c.IntSlice("palette-pointer")); err != nil {
			return nil, nil, fmt.Errorf("palette: %w", err)
		}
		hint = paletteName
	}
	if c.Int("tileset-offset") >= 0 {
		if _, err := register(m, tilesetName, c.String("tileset-format"), hint, c.Int("tileset-offset"), c.IntSlice("tileset-pointer")); err != nil {
			return nil, nil, fmt.Errorf("tileset: %w", err)
		}
		hint = tilesetName
	}
	if _, err := register(m, imageName, c.String("format"), hint, c.Int("offset"), c.IntSlice("pointer")); err != nil {
		return nil, nil, fmt.Errorf("image: %w", err)
	}

	h := romgfx.NewHistory(m)
	e, err := editor.New(h, c.Int("offset"), editor.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	e.SetSpritePage(c.Int("page"))
	e.SetPalettePage(c.Int("palette-page"))

	return h, e, nil
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	m, err := openModel(c.Args().First(), newLogger(c))
	if err != nil {
		return cli.Exit(err, 1)
	}

	r, err := register(m, imageName, c.String("format"), "", c.Int("offset"), c.IntSlice("pointer"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	data, err := m.Decode(r)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("%s at %#x\n", r.FormatString(), r.Start)
	fmt.Printf("  stored:  %s\n", humanize.IBytes(uint64(r.Length)))
	fmt.Printf("  decoded: %s\n", humanize.IBytes(uint64(len(data))))
	fmt.Printf("  pages:   %d\n", r.Pages(len(data)))
	for _, p := range m.PointersOf(r) {
		fmt.Printf("  pointer: %#x\n", p)
	}

	return nil
}

func decompress(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	out, err := lz.Decompress(data, c.Int("offset"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := os.WriteFile(c.Args().Get(1), out, 0o644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func compress(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err, 1)
	}
	out, err := lz.Compress(data)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := os.WriteFile(c.Args().Get(1), out, 0o644); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func scan(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)
	m, err := openModel(c.Args().First(), logger)
	if err != nil {
		return cli.Exit(err, 1)
	}

	opts := []romgfx.ScanOption{
		romgfx.WithScanLogger(logger),
		romgfx.WithDecodedLength(c.Int("min"), c.Int("max"), c.Int("unit")),
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, romgfx.WithWorkers(n))
	}

	found, err := m.Scan(c.Context, opts...)
	if err != nil {
		return cli.Exit(err, 1)
	}
	for _, f := range found {
		fmt.Printf("%#08x %10s -> %s\n", f.Start, humanize.IBytes(uint64(f.Length)), humanize.IBytes(uint64(f.DecodedLength)))
	}

	return nil
}

func export(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)
	m, err := openModel(c.Args().Get(0), logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	_, e, err := openEditor(c, m, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}

	src := image.NewRGBA(e.Bounds())
	colors := e.PixelData()
	for y := 0; y < e.Height(); y++ {
		for x := 0; x < e.Width(); x++ {
			src.Set(x, y, colors[e.PixelIndex(x, y)])
		}
	}

	scale := c.Int("scale")
	if scale < 1 {
		scale = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.Width()*scale, e.Height()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	if err := png.Encode(f, dst); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func importImage(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	file := c.Args().Get(0)
	fi, err := os.Stat(file)
	if err != nil {
		return cli.Exit(err, 1)
	}

	logger := newLogger(c)
	m, err := openModel(file, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	h, e, err := openEditor(c, m, logger)
	if err != nil {
		return cli.Exit(err, 1)
	}

	r, err := os.Open(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := e.ImportImage(img); err != nil {
		return cli.Exit(err, 1)
	}
	if !h.CanUndo() {
		logger.Info("image unchanged")
		return nil
	}

	if err := os.WriteFile(file, m.Bytes(), fi.Mode().Perm()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "romgfx"
	app.Usage = "ROM graphics inspection and editing utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"ROMGFX_LOG_LEVEL"},
			Value:   "warn",
			Usage:   "log level (trace, debug, info, warn, error)",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Describe a run of graphics data",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				imageFlags[0],
				imageFlags[1],
				imageFlags[2],
			},
			Action: info,
		},
		{
			Name:      "decompress",
			Usage:     "Decompress a compressed stream",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "offset",
					Aliases:  []string{"o"},
					Usage:    "address of the stream",
					Required: true,
				},
			},
			Action: decompress,
		},
		{
			Name:      "compress",
			Usage:     "Compress a file",
			ArgsUsage: "FILE OUTPUT",
			Action:    compress,
		},
		{
			Name:      "scan",
			Usage:     "Search for compressed streams",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "workers",
					Usage: "number of workers, defaults to the number of CPUs",
				},
				&cli.IntFlag{
					Name:  "min",
					Value: 32,
					Usage: "smallest decoded length",
				},
				&cli.IntFlag{
					Name:  "max",
					Value: 0x40000,
					Usage: "largest decoded length",
				},
				&cli.IntFlag{
					Name:  "unit",
					Value: 32,
					Usage: "decoded length must be a multiple of this",
				},
			},
			Action: scan,
		},
		{
			Name:      "export",
			Usage:     "Export an image as PNG",
			ArgsUsage: "FILE OUTPUT",
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "scale factor",
				},
			}, imageFlags...),
			Action: export,
		},
		{
			Name:        "import",
			Usage:       "Import an image into a ROM",
			Description: "The image is reduced to the colors of one palette page, which are written over the selected palette page. Runs are moved to free space if they grow, and any pointers given are updated.",
			ArgsUsage:   "FILE IMAGE",
			Flags:       imageFlags,
			Action:      importImage,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
