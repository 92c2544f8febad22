package domain

// ArticleClassification holds the main/accessory/spare-part/service flags of an article.
// The flags are not mutually exclusive.
type ArticleClassification struct {
	MainProduct bool `gorm:"not null;default:false" json:"main_product"`
	Accessory   bool `gorm:"not null;default:false" json:"accessory"`
	SparePart   bool `gorm:"not null;default:false" json:"spare_part"`
	Service     bool `gorm:"not null;default:false" json:"service"`
}

// IsAccessoryOrSparePart reports whether product resolution may be deferred to clustering
func (c ArticleClassification) IsAccessoryOrSparePart() bool {
	return c.Accessory || c.SparePart
}

// IsZero reports whether no flag is set
func (c ArticleClassification) IsZero() bool {
	return !c.MainProduct && !c.Accessory && !c.SparePart && !c.Service
}
