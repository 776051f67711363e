package model

import "time"

const (
	ClassificationFarmProduce = "FP"
	ClassificationFarmInput   = "FI"
	ClassificationService     = "SL"
)

var classificationLabels = map[string]string{
	ClassificationFarmProduce: "Farm Produce/Products",
	ClassificationFarmInput:   "Farm Input",
	ClassificationService:     "Service Listing",
}

// Classifications in display order.
var Classifications = []string{ClassificationFarmProduce, ClassificationFarmInput, ClassificationService}

func ClassificationLabel(c string) string {
	return classificationLabels[c]
}

func ValidClassification(c string) bool {
	_, ok := classificationLabels[c]
	return ok
}

type Category struct {
	BaseModel
	Name           string     `db:"name"`
	Image          *string    `db:"image"`
	Classification string     `db:"classification"`
	ParentID       *string    `db:"parent_id"`
	Children       []Category `db:"-"`
	HierarchyLevel int        `db:"-"`
}

type CategoryRelation struct {
	ID        string    `db:"id"`
	ParentID  string    `db:"parent_id"`
	ChildID   string    `db:"child_id"`
	CreatedAt time.Time `db:"created_at"`
}
