package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	_ "github.com/jbuchbinder/gopnm"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/navgrid/internal/fsutil"
	"github.com/banshee-data/navgrid/internal/grid"
)

const (
	rosFreePixel     uint8 = 254
	rosOccupiedPixel uint8 = 0

	defaultOccupiedThresh = 0.65
	defaultFreeThresh     = 0.196
)

// ROSMapMeta is the map_server YAML sidecar.
type ROSMapMeta struct {
	Image          string    `yaml:"image"`
	Resolution     float64   `yaml:"resolution"`
	Origin         []float64 `yaml:"origin,flow"`
	Negate         int       `yaml:"negate"`
	OccupiedThresh float64   `yaml:"occupied_thresh"`
	FreeThresh     float64   `yaml:"free_thresh"`
	Mode           string    `yaml:"mode,omitempty"`
}

// WriteROSMap writes occ as <dir>/<name>.png plus <dir>/<name>.yaml in ROS
// map_server format. originX and originZ are the world pose of the lower
// left cell, i.e. the semantic map's min_X and min_Z. The image is flipped
// so that array row 0 is the bottom image row.
func WriteROSMap(fsys fsutil.FileSystem, occ *grid.Occupancy, resolution, originX, originZ float64, dir, name string) (string, error) {
	rows, cols := occ.Dims()
	if rows == 0 || cols == 0 {
		return "", fmt.Errorf("cannot export empty occupancy %dx%d", rows, cols)
	}
	if resolution <= 0 {
		return "", fmt.Errorf("resolution must be positive, got %v", resolution)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := rosOccupiedPixel
			if occ.At(r, c) == grid.Navigable {
				v = rosFreePixel
			}
			img.SetGray(c, rows-1-r, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode map image: %w", err)
	}

	meta := ROSMapMeta{
		Image:          name + ".png",
		Resolution:     resolution,
		Origin:         []float64{originX, originZ, 0},
		Negate:         0,
		OccupiedThresh: defaultOccupiedThresh,
		FreeThresh:     defaultFreeThresh,
		Mode:           "trinary",
	}
	yml, err := yaml.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode map yaml: %w", err)
	}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := fsys.WriteFile(filepath.Join(dir, meta.Image), buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write map image: %w", err)
	}
	yamlPath := filepath.Join(dir, name+".yaml")
	if err := fsys.WriteFile(yamlPath, yml, 0644); err != nil {
		return "", fmt.Errorf("failed to write map yaml: %w", err)
	}
	return yamlPath, nil
}

// ReadROSMap loads a map_server pair back into an Occupancy. The image may be
// PNG or PGM. A cell is navigable when its free probability is below
// free_thresh.
func ReadROSMap(fsys fsutil.FileSystem, yamlPath string) (*grid.Occupancy, *ROSMapMeta, error) {
	yml, err := fsys.ReadFile(yamlPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read map yaml: %w", err)
	}
	var meta ROSMapMeta
	if err := yaml.Unmarshal(yml, &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to parse map yaml: %w", err)
	}
	if meta.Image == "" {
		return nil, nil, fmt.Errorf("map yaml %s names no image", yamlPath)
	}
	if meta.FreeThresh == 0 {
		meta.FreeThresh = defaultFreeThresh
	}

	imgPath := meta.Image
	if !filepath.IsAbs(imgPath) {
		imgPath = filepath.Join(filepath.Dir(yamlPath), imgPath)
	}
	data, err := fsys.ReadFile(imgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read map image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode map image: %w", err)
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	occ := grid.NewOccupancy(rows, cols)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			pixel := color.GrayModel.Convert(img.At(bounds.Min.X+i, bounds.Min.Y+j)).(color.Gray).Y
			p := float64(255-pixel) / 255.0
			if meta.Negate != 0 {
				p = float64(pixel) / 255.0
			}
			if p < meta.FreeThresh {
				if err := occ.Set(rows-1-j, i, grid.Navigable); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return occ, &meta, nil
}
