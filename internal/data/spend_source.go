package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"spend-tier-service/internal/biz"
	"spend-tier-service/internal/conf"
	"spend-tier-service/internal/constants"
	"spend-tier-service/internal/data/model"
	tierErrors "spend-tier-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// NewSpendSource 按配置选择月度汇总的数据来源
func NewSpendSource(c *conf.Bootstrap, data *Data, logger log.Logger) (biz.SpendSource, error) {
	kind, root, prefix := constants.SourceKindCSV, "", constants.DefaultSourcePrefix
	if c.Source != nil {
		if c.Source.Kind != "" {
			kind = c.Source.Kind
		}
		root = c.Source.Root
		if c.Source.Prefix != "" {
			prefix = c.Source.Prefix
		}
	}

	switch kind {
	case constants.SourceKindCSV:
		if root == "" {
			return nil, tierErrors.ErrConfiguration("source root is required for csv source")
		}
		return NewCSVSpendSource(os.DirFS(root), prefix, logger), nil
	case constants.SourceKindDecisions:
		return NewDecisionSpendSource(data, time.Now, logger), nil
	default:
		return nil, tierErrors.ErrConfiguration("unknown source kind %q", kind)
	}
}

// csvSpendSource 列出前缀下的 .csv 对象，逐行读取 customer_id,amount
type csvSpendSource struct {
	fsys   fs.FS
	prefix string
	log    *log.Helper
}

// NewCSVSpendSource 创建 csv 来源
func NewCSVSpendSource(fsys fs.FS, prefix string, logger log.Logger) biz.SpendSource {
	return &csvSpendSource{
		fsys:   fsys,
		prefix: strings.TrimPrefix(prefix, "/"),
		log:    log.NewHelper(logger),
	}
}

// Each 逐个对象流式读取，内存中不保留行数据
func (s *csvSpendSource) Each(ctx context.Context, fn func(biz.SpendEntry) error) error {
	var files int
	err := fs.WalkDir(s.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(path, s.prefix) || !strings.HasSuffix(path, ".csv") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		files++
		return s.readFile(path, fn)
	})
	if err != nil {
		return fmt.Errorf("read csv source: %w", err)
	}
	s.log.Infof("read %d csv objects under %q", files, s.prefix)
	return nil
}

func (s *csvSpendSource) readFile(path string, fn func(biz.SpendEntry) error) error {
	f, err := s.fsys.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	customerCol, amountCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "customer_id":
			customerCol = i
		case "amount":
			amountCol = i
		}
	}
	if customerCol < 0 {
		s.log.Warnf("skip %s: no customer_id column", path)
		return nil
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		entry := biz.SpendEntry{CustomerID: column(row, customerCol), Amount: column(row, amountCol)}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

func column(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// decisionSpendSource 以已存储的交易资格决策作为历史交易，按上一个自然月分页读取
type decisionSpendSource struct {
	data      *Data
	now       func() time.Time
	batchSize int
	log       *log.Helper
}

// NewDecisionSpendSource 创建基于交易决策表的来源
func NewDecisionSpendSource(data *Data, now func() time.Time, logger log.Logger) biz.SpendSource {
	return &decisionSpendSource{
		data:      data,
		now:       now,
		batchSize: 1000,
		log:       log.NewHelper(logger),
	}
}

// Each 分批读取上一个自然月（按 timestamp Unix 秒）的交易
func (s *decisionSpendSource) Each(ctx context.Context, fn func(biz.SpendEntry) error) error {
	from, to := previousMonth(s.now())
	var rows []model.EligibilityDecision
	result := s.data.db.WithContext(ctx).
		Model(&model.EligibilityDecision{}).
		Select("transaction_id", "customer_id", "amount").
		Where("timestamp >= ? AND timestamp < ?", from.Unix(), to.Unix()).
		FindInBatches(&rows, s.batchSize, func(tx *gorm.DB, batch int) error {
			for _, row := range rows {
				entry := biz.SpendEntry{CustomerID: row.CustomerID, Amount: strconv.FormatInt(row.Amount, 10)}
				if err := fn(entry); err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		return fmt.Errorf("read decisions %s..%s: %w", from.Format(constants.TimeFormatMonth), to.Format(constants.TimeFormatMonth), result.Error)
	}
	s.log.Infof("read %d stored transactions for %s", result.RowsAffected, from.Format(constants.TimeFormatMonth))
	return nil
}

// previousMonth 返回上一个自然月的 [from, to)
func previousMonth(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return to.AddDate(0, -1, 0), to
}
