package input

import (
	"context"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

var log = logrus.WithField("module", "input")

// Region 区域输入数据
// 说明：Envelope为外包矩形[minX, minY, maxX, maxY]；Index为0时由生成器随机生成初始QLI；
// Weight为人口分配权重，0按1计
type Region struct {
	ID       string     `yaml:"id" bson:"id"`
	Envelope [4]float64 `yaml:"envelope" bson:"envelope"`
	Index    float64    `yaml:"index,omitempty" bson:"index,omitempty"`
	Weight   float64    `yaml:"weight,omitempty" bson:"weight,omitempty"`
}

// Input 输入数据
// 功能：存储生成合成人口所需的区域数据
type Input struct {
	Regions []Region
}

// Init 加载输入数据
// 功能：根据配置加载区域数据
// 参数：c-输入配置
// 返回：输入数据，没有配置区域时Regions为空，由生成器按网格合成
// 算法说明：
// 1. 配置了文件时从YAML文件加载
// 2. 否则配置了集合时从MongoDB加载
// 3. 校验区域ID与外包矩形
func Init(c config.Input) (*Input, error) {
	res := &Input{Regions: make([]Region, 0)}
	if c.Regions == nil {
		log.Info("no region input, regions will be synthesized")
		return res, nil
	}
	var err error
	switch {
	case c.Regions.File != "":
		res.Regions, err = loadFile(c.Regions.File)
	case c.Regions.Col != "":
		if c.URI == "" {
			return nil, fmt.Errorf("regions collection %s.%s given without mongo uri", c.Regions.DB, c.Regions.Col)
		}
		client := mongoutil.NewClient(c.URI)
		defer client.Disconnect(context.Background())
		res.Regions, err = loadMongo(context.Background(), mongoutil.GetMongoColl(client, *c.Regions))
	default:
		return nil, fmt.Errorf("regions input has neither file nor collection")
	}
	if err != nil {
		return nil, err
	}
	if err := validateRegions(res.Regions); err != nil {
		return nil, err
	}
	log.Infof("loaded %d regions", len(res.Regions))
	return res, nil
}

// loadFile 从YAML文件加载区域列表
func loadFile(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file %s: %w", path, err)
	}
	var regions []Region
	if err := yaml.UnmarshalStrict(data, &regions); err != nil {
		return nil, fmt.Errorf("parse regions file %s: %w", path, err)
	}
	return regions, nil
}

// loadMongo 从MongoDB集合加载区域列表
func loadMongo(ctx context.Context, coll *mongo.Collection) ([]Region, error) {
	log.Infof("start fetching regions from %s", coll.Name())
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find regions: %w", err)
	}
	defer cursor.Close(ctx)
	var regions []Region
	if err := cursor.All(ctx, &regions); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	log.Infof("finish fetching regions from %s", coll.Name())
	return regions, nil
}
