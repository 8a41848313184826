package metadata

import (
	"strings"
	"time"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/internal/models"
)

// ShootingTimeLayout 是拍摄时间缺省值的格式 (YYYYMMDD)。
const ShootingTimeLayout = "20060102"

// Raw 是上传表单里原样收到的字段，可能为空或带空白。
type Raw struct {
	Title            string
	Description      string
	ShootingTime     string
	ShootingLocation string
	Photographer     string
}

// Defaults 是各字段为空时的替代值。拍摄时间没有固定默认值，总是取当天日期。
type Defaults struct {
	Title            string
	Description      string
	ShootingLocation string
	Photographer     string
}

// BuiltinDefaults 返回内置的默认值。
func BuiltinDefaults() Defaults {
	return Defaults{
		Title:            "Untitled",
		Description:      "No description provided",
		ShootingLocation: "Taiwan",
		Photographer:     "None",
	}
}

// DefaultsFromConfig 用配置覆盖内置默认值，配置里的空字符串不生效。
func DefaultsFromConfig(cfg config.MetadataDefaults) Defaults {
	b := BuiltinDefaults()
	return Defaults{
		Title:            firstNonBlank(cfg.Title, b.Title),
		Description:      firstNonBlank(cfg.Description, b.Description),
		ShootingLocation: firstNonBlank(cfg.ShootingLocation, b.ShootingLocation),
		Photographer:     firstNonBlank(cfg.Photographer, b.Photographer),
	}
}

// Normalize 去掉每个字段两端的空白，空字段用 d 中的默认值替换；
// d 中对应字段也为空时使用内置默认值，因此结果中没有空字段。不会失败，也没有副作用。
func Normalize(raw Raw, d Defaults, now time.Time) models.MetadataRecord {
	b := BuiltinDefaults()
	return models.MetadataRecord{
		Title:            firstNonBlank(raw.Title, d.Title, b.Title),
		Description:      firstNonBlank(raw.Description, d.Description, b.Description),
		ShootingTime:     firstNonBlank(raw.ShootingTime, now.Format(ShootingTimeLayout)),
		ShootingLocation: firstNonBlank(raw.ShootingLocation, d.ShootingLocation, b.ShootingLocation),
		Photographer:     firstNonBlank(raw.Photographer, d.Photographer, b.Photographer),
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
