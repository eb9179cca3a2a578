package course

import (
	"fmt"
	"io"
	"time"
)

// Video 是模块下的课程视频。URL 可能是相对服务根路径的地址
// （例如 /static/<file>）。
type Video struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration"`
	URL         string `json:"url"`
	ModuleID    int    `json:"module_id"`
}

// Module 在课程内对视频分组
type Module struct {
	ID       int     `json:"id"`
	CourseID int     `json:"course_id"`
	Title    string  `json:"title"`
	Order    int     `json:"order"`
	Videos   []Video `json:"videos"`
}

// Course 同时用于课程目录摘要和详情视图，列表接口
// 已经内嵌了模块。
type Course struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Price        int       `json:"price"`
	IsPublished  bool      `json:"is_published"`
	InstructorID *int      `json:"instructor_id,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Modules      []Module  `json:"modules"`
}

// VideoCount 统计所有模块下的视频总数
func (c Course) VideoCount() int {
	total := 0
	for _, m := range c.Modules {
		total += len(m.Videos)
	}
	return total
}

// CourseCreate 工作室的“新建课程”表单
type CourseCreate struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Price       int    `json:"price" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

// CourseUpdate 是部分更新，为 nil 的字段保持不变
type CourseUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1"`
	Description *string `json:"description,omitempty"`
	Price       *int    `json:"price,omitempty" validate:"omitnil,gte=0"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// Empty 报告更新是否一个字段都没有
func (u CourseUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil && u.IsPublished == nil
}

// ModuleCreate 工作室的“添加模块”表单
type ModuleCreate struct {
	Title string `json:"title" validate:"required"`
	Order int    `json:"order" validate:"gte=0"`
}

// VideoUpload 描述向模块发起的 multipart 上传
type VideoUpload struct {
	Title    string    `json:"title" validate:"required"`
	FileName string    `json:"file" validate:"required"`
	Body     io.Reader `json:"-" validate:"required"`
}

// EnrollResult 是选课接口的确认结果
type EnrollResult struct {
	Message string `json:"message"`
}

// AlreadyEnrolledMessage 是后端对重复选课返回的消息
const AlreadyEnrolledMessage = "Already enrolled"

// AlreadyEnrolled 报告用户在本次调用前是否已选课
func (r EnrollResult) AlreadyEnrolled() bool {
	return r.Message == AlreadyEnrolledMessage
}

// NextModule 生成工作室“添加模块”提交的表单：标题和位置
// 接在课程已有模块之后。
func NextModule(c Course) ModuleCreate {
	n := len(c.Modules)
	return ModuleCreate{Title: fmt.Sprintf("Module %d", n+1), Order: n}
}

// Health 是服务端存活状态
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
