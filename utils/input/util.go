package input

import "fmt"

// 区域ID的前7位为市代码
const municipalityCodeLen = 7

// validateRegions 校验区域数据
// 功能：区域ID不重复且至少包含市代码，外包矩形非空
func validateRegions(regions []Region) error {
	ids := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if len(r.ID) < municipalityCodeLen {
			return fmt.Errorf("region id %q shorter than municipality code", r.ID)
		}
		if _, ok := ids[r.ID]; ok {
			return fmt.Errorf("regions have duplicated id %s, please check data", r.ID)
		}
		ids[r.ID] = struct{}{}
		e := r.Envelope
		if e[0] >= e[2] || e[1] >= e[3] {
			return fmt.Errorf("region %s has empty envelope %v", r.ID, e)
		}
		if r.Index < 0 || r.Weight < 0 {
			return fmt.Errorf("region %s has negative index or weight", r.ID)
		}
	}
	return nil
}
