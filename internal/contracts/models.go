package contracts

// ModelInfo describes a selectable play model (difficulty tier)
type ModelInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PreviewImage string `json:"preview_image"`
	StreamURL    string `json:"stream_url,omitempty"`
	ReplayID     string `json:"replay_id,omitempty"`
}

// Models is the static model catalog
var Models = []ModelInfo{
	{
		ID:           "beginner",
		Name:         "Beginner",
		Description:  "입문용 난이도. 보수적으로 회피하며 기본 전략을 수행합니다.",
		PreviewImage: "/previews/prev00.png",
	},
	{
		ID:           "medium",
		Name:         "Medium",
		Description:  "중간 난이도. 공격과 회피의 균형이 잡힌 플레이를 합니다.",
		PreviewImage: "/previews/prev00.png",
	},
	{
		ID:           "master",
		Name:         "Master",
		Description:  "상급 난이도. 적극적인 공격과 정교한 움직임을 선보입니다.",
		PreviewImage: "/previews/prev01.gif",
	},
}

// ModelByID looks up a model in the catalog
func ModelByID(id string) (ModelInfo, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
