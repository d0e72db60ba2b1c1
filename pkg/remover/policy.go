package remover

import (
	"errors"
	"fmt"
	"strings"
)

// 重复类型名称，同时用于 --policy 参数与删除结果
const (
	ClassIntraTrain     = "intra-train"
	ClassIntraTest      = "intra-test"
	ClassCrossFromTest  = "cross-from-test"
	ClassCrossFromTrain = "cross-from-train"
)

var (
	ErrEmptyPolicy = errors.New("removal policy selects nothing")
	// ErrConflictingPolicy 两种跨分区删除指定了相反的权威分区，合用会删除全部副本
	ErrConflictingPolicy = errors.New("cross-from-test and cross-from-train cannot be combined")
)

// Policy 选择要删除的重复类型。
// CrossFromTest 以训练集为准删除测试集中的副本；CrossFromTrain 以测试集为准删除训练集中该摘要的全部副本。
type Policy struct {
	IntraTrain     bool
	IntraTest      bool
	CrossFromTest  bool
	CrossFromTrain bool
}

func (p Policy) Empty() bool {
	return !p.IntraTrain && !p.IntraTest && !p.CrossFromTest && !p.CrossFromTrain
}

// Validate 检查策略至少选中一种类型，且跨分区只有一个权威分区
func (p Policy) Validate() error {
	if p.Empty() {
		return ErrEmptyPolicy
	}
	if p.CrossFromTest && p.CrossFromTrain {
		return ErrConflictingPolicy
	}
	return nil
}

func (p Policy) String() string {
	var classes []string
	if p.IntraTrain {
		classes = append(classes, ClassIntraTrain)
	}
	if p.IntraTest {
		classes = append(classes, ClassIntraTest)
	}
	if p.CrossFromTest {
		classes = append(classes, ClassCrossFromTest)
	}
	if p.CrossFromTrain {
		classes = append(classes, ClassCrossFromTrain)
	}
	return strings.Join(classes, ",")
}

// ParsePolicy 解析逗号分隔的类型列表。
// 简写以训练集为准: test 删除测试集中的跨分区副本和内部重复，
// train 只删除训练集内部重复，both 为两者之和。
func ParsePolicy(value string) (Policy, error) {
	var p Policy
	for _, part := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case ClassIntraTrain:
			p.IntraTrain = true
		case ClassIntraTest:
			p.IntraTest = true
		case ClassCrossFromTest:
			p.CrossFromTest = true
		case ClassCrossFromTrain:
			p.CrossFromTrain = true
		case "test":
			p.CrossFromTest = true
			p.IntraTest = true
		case "train":
			p.IntraTrain = true
		case "both":
			p.IntraTrain = true
			p.IntraTest = true
			p.CrossFromTest = true
		default:
			return Policy{}, fmt.Errorf("未知的删除类型: %q", part)
		}
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
