package report

import "github.com/Enochung/PhotoConsolidationBackEndSys/config"

// Layout 是报告版式的固定文字和尺寸。
type Layout struct {
	Heading string

	TitleLabel       string
	DescriptionLabel string

	PhotoNoLabel          string
	ShootingTimeLabel     string
	ShootingLocationLabel string
	PhotographerLabel     string

	// ImageWidthEMU 是图片的显示宽度，5000000 EMU 约 5.5 英寸。
	ImageWidthEMU int64
	// ImagesPerPage 个表格之后分页。
	ImagesPerPage int
	// IncludeDescription 为 true 时在文档开头的标题段落后再输出描述段落。
	IncludeDescription bool
}

func DefaultLayout() Layout {
	return Layout{
		Heading:               "Image Report",
		TitleLabel:            "Title",
		DescriptionLabel:      "Description",
		PhotoNoLabel:          "Photo No.",
		ShootingTimeLabel:     "Shooting Time",
		ShootingLocationLabel: "Shooting Location",
		PhotographerLabel:     "Photographer",
		ImageWidthEMU:         5000000,
		ImagesPerPage:         2,
	}
}

// LayoutFromConfig 用配置覆盖默认版式，非法值保持默认。
func LayoutFromConfig(cfg config.ReportConfig) Layout {
	l := DefaultLayout()
	if cfg.Heading != "" {
		l.Heading = cfg.Heading
	}
	if cfg.ImageWidthEMU > 0 {
		l.ImageWidthEMU = cfg.ImageWidthEMU
	}
	if cfg.ImagesPerPage > 0 {
		l.ImagesPerPage = cfg.ImagesPerPage
	}
	l.IncludeDescription = cfg.IncludeDescription
	return l
}
