package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/zhouzirui/coursehub/internal/model/course"
)

var errUsage = errors.New("usage")

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func requireID(fs *flag.FlagSet, name string, id int) error {
	if id <= 0 {
		return usageError("%s requires -%s", fs.Name(), name)
	}
	return nil
}

func (a *app) printCourses(courses []course.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(a.out, "No courses found.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tMODULES\tVIDEOS\tSTATUS")
	for _, c := range courses {
		status := "draft"
		if c.IsPublished {
			status = "published"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", c.ID, c.Title, price(c.Price), len(c.Modules), c.VideoCount(), status)
	}
	_ = tw.Flush()
}

func price(p int) string {
	if p == 0 {
		return "Free"
	}
	return fmt.Sprintf("$%d", p)
}

func (a *app) cmdCourses(ctx context.Context, args []string) error {
	if err := a.flags("courses").Parse(args); err != nil {
		return err
	}
	courses, err := a.api.ListCourses(ctx)
	if err != nil {
		return err
	}
	a.printCourses(courses)
	return nil
}

func (a *app) cmdCourse(ctx context.Context, args []string) error {
	fs := a.flags("course")
	id := fs.Int("id", 0, "course id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, "id", *id); err != nil {
		return err
	}

	c, err := a.api.GetCourse(ctx, *id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", c.Title, price(c.Price))
	if c.Description != "" {
		fmt.Fprintln(a.out, c.Description)
	}
	if len(c.Modules) == 0 {
		fmt.Fprintln(a.out, "No content yet.")
		return nil
	}
	for _, m := range c.Modules {
		fmt.Fprintf(a.out, "\n[%d] %s\n", m.ID, m.Title)
		for _, v := range m.Videos {
			fmt.Fprintf(a.out, "  - %s  %s\n", v.Title, a.api.ResolveVideoURL(v.URL))
		}
	}
	return nil
}

func (a *app) cmdEnroll(ctx context.Context, args []string) error {
	fs := a.flags("enroll")
	id := fs.Int("id", 0, "course id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, "id", *id); err != nil {
		return err
	}

	creds, err := a.credentials()
	if err != nil {
		return err
	}
	res, err := a.api.Enroll(ctx, creds, *id)
	if err != nil {
		return err
	}
	if res.AlreadyEnrolled() {
		fmt.Fprintln(a.out, "You are already enrolled in this course.")
		return nil
	}
	fmt.Fprintln(a.out, "Successfully enrolled!")
	return nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	var req course.SignupRequest
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password (prompted when empty)")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Country, "country", "", "country")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Password == "" {
		pw, err := a.readSecret("Password: ")
		if err != nil {
			return err
		}
		req.Password = pw
	}

	user, token, err := a.api.SignupAndLogin(ctx, req)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(token.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! You are logged in.\n", user.DisplayName())
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := a.flags("login")
	var req course.LoginRequest
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Password == "" {
		pw, err := a.readSecret("Password: ")
		if err != nil {
			return err
		}
		req.Password = pw
	}

	token, err := a.api.Login(ctx, req)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(token.AccessToken); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

func (a *app) cmdLogout(_ context.Context, args []string) error {
	if err := a.flags("logout").Parse(args); err != nil {
		return err
	}
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) cmdMe(ctx context.Context, args []string) error {
	if err := a.flags("me").Parse(args); err != nil {
		return err
	}
	creds, err := a.credentials()
	if err != nil {
		return err
	}
	user, err := a.api.Me(ctx, creds)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", user.DisplayName())
	fmt.Fprintf(tw, "Email:\t%s\n", user.Email)
	if user.Username != "" {
		fmt.Fprintf(tw, "Username:\t%s\n", user.Username)
	}
	if user.Country != "" {
		fmt.Fprintf(tw, "Country:\t%s\n", user.Country)
	}
	return tw.Flush()
}

func (a *app) cmdMyCourses(ctx context.Context, args []string) error {
	if err := a.flags("my-courses").Parse(args); err != nil {
		return err
	}
	creds, err := a.credentials()
	if err != nil {
		return err
	}
	courses, err := a.api.MyEnrollments(ctx, creds)
	if err != nil {
		return err
	}
	a.printCourses(courses)
	return nil
}

func (a *app) cmdStudio(ctx context.Context, args []string) error {
	if err := a.flags("studio").Parse(args); err != nil {
		return err
	}
	creds, err := a.credentials()
	if err != nil {
		return err
	}
	courses, err := a.api.MyCourses(ctx, creds)
	if err != nil {
		return err
	}
	a.printCourses(courses)
	return nil
}

func (a *app) cmdCreateCourse(ctx context.Context, args []string) error {
	fs := a.flags("create-course")
	var form course.CourseCreate
	fs.StringVar(&form.Title, "title", "", "course title")
	fs.StringVar(&form.Description, "description", "", "course description")
	fs.IntVar(&form.Price, "price", 0, "price in dollars, 0 for free")
	fs.BoolVar(&form.IsPublished, "publish", false, "publish immediately")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds, err := a.credentials()
	if err != nil {
		return err
	}
	c, err := a.api.CreateCourse(ctx, creds, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created course %d: %s\n", c.ID, c.Title)
	return nil
}

func (a *app) cmdUpdateCourse(ctx context.Context, args []string) error {
	fs := a.flags("update-course")
	id := fs.Int("id", 0, "course id")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	newPrice := fs.Int("price", 0, "new price")
	publish := fs.Bool("publish", false, "publish or unpublish")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, "id", *id); err != nil {
		return err
	}

	// 只发送命令行上给出的参数
	var form course.CourseUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			form.Title = title
		case "description":
			form.Description = description
		case "price":
			form.Price = newPrice
		case "publish":
			form.IsPublished = publish
		}
	})

	creds, err := a.credentials()
	if err != nil {
		return err
	}
	c, err := a.api.UpdateCourse(ctx, creds, *id, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated course %d: %s\n", c.ID, c.Title)
	return nil
}

func (a *app) cmdCreateModule(ctx context.Context, args []string) error {
	fs := a.flags("create-module")
	courseID := fs.Int("course", 0, "course id")
	title := fs.String("title", "", "module title (default: next \"Module N\")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, "course", *courseID); err != nil {
		return err
	}

	creds, err := a.credentials()
	if err != nil {
		return err
	}

	c, err := a.api.GetCourse(ctx, *courseID)
	if err != nil {
		return err
	}
	form := course.NextModule(c)
	if strings.TrimSpace(*title) != "" {
		form.Title = *title
	}

	m, err := a.api.CreateModule(ctx, creds, *courseID, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created module %d: %s\n", m.ID, m.Title)
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	moduleID := fs.Int("module", 0, "module id")
	title := fs.String("title", "", "video title")
	path := fs.String("file", "", "video file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(fs, "module", *moduleID); err != nil {
		return err
	}

	creds, err := a.credentials()
	if err != nil {
		return err
	}

	upload := course.VideoUpload{Title: *title}
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			return fmt.Errorf("open video: %w", err)
		}
		defer f.Close()
		upload.FileName = filepath.Base(*path)
		upload.Body = f
	}

	v, err := a.api.UploadVideo(ctx, creds, *moduleID, upload)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %q: %s\n", v.Title, a.api.ResolveVideoURL(v.URL))
	return nil
}

func (a *app) cmdHealth(ctx context.Context, args []string) error {
	if err := a.flags("health").Parse(args); err != nil {
		return err
	}
	h, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", h.Service, h.Status)
	return nil
}
