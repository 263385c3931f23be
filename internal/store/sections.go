package store

import (
	"context"
	"slices"

	"smartresume/internal/resume"
)

// entry 是各分区条目类型的公共约束。
type entry interface {
	resume.WorkEntry | resume.EducationEntry | resume.SkillEntry |
		resume.ProjectEntry | resume.AwardEntry | resume.LanguageEntry
}

// add 追加一个新条目并返回其 ID。
func add[T entry](ctx context.Context, s *DocumentStore, section resume.Section,
	list func(*resume.Document) *[]T, build func(id string) T) (string, error) {
	id := s.newID()
	err := s.mutate(ctx, Change{Op: OpAdd, Section: section, EntryID: id}, true, func(doc *resume.Document) {
		l := list(doc)
		*l = append(*l, build(id))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// update 合并 patch 到匹配条目；无匹配时不改动分区，但仍刷新时间戳。
func update[T entry](ctx context.Context, s *DocumentStore, section resume.Section, id string,
	list func(*resume.Document) *[]T, idOf func(*T) string, apply func(*T)) error {
	return s.mutate(ctx, Change{Op: OpUpdate, Section: section, EntryID: id}, true, func(doc *resume.Document) {
		l := *list(doc)
		for i := range l {
			if idOf(&l[i]) == id {
				apply(&l[i])
				return
			}
		}
	})
}

// remove 过滤掉匹配条目，保留其余条目的顺序。
func remove[T entry](ctx context.Context, s *DocumentStore, section resume.Section, id string,
	list func(*resume.Document) *[]T, idOf func(*T) string) error {
	return s.mutate(ctx, Change{Op: OpRemove, Section: section, EntryID: id}, true, func(doc *resume.Document) {
		l := list(doc)
		*l = slices.DeleteFunc(*l, func(e T) bool { return idOf(&e) == id })
	})
}

func workList(d *resume.Document) *[]resume.WorkEntry           { return &d.Work }
func educationList(d *resume.Document) *[]resume.EducationEntry { return &d.Education }
func skillList(d *resume.Document) *[]resume.SkillEntry         { return &d.Skills }
func projectList(d *resume.Document) *[]resume.ProjectEntry     { return &d.Projects }
func awardList(d *resume.Document) *[]resume.AwardEntry         { return &d.Awards }
func languageList(d *resume.Document) *[]resume.LanguageEntry   { return &d.Languages }

func (s *DocumentStore) AddWork(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionWork, workList, resume.NewWorkEntry)
}

func (s *DocumentStore) UpdateWork(ctx context.Context, id string, patch resume.WorkPatch) error {
	return update(ctx, s, resume.SectionWork, id, workList,
		func(e *resume.WorkEntry) string { return e.ID },
		func(e *resume.WorkEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveWork(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionWork, id, workList,
		func(e *resume.WorkEntry) string { return e.ID })
}

func (s *DocumentStore) AddEducation(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionEducation, educationList, resume.NewEducationEntry)
}

func (s *DocumentStore) UpdateEducation(ctx context.Context, id string, patch resume.EducationPatch) error {
	return update(ctx, s, resume.SectionEducation, id, educationList,
		func(e *resume.EducationEntry) string { return e.ID },
		func(e *resume.EducationEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveEducation(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionEducation, id, educationList,
		func(e *resume.EducationEntry) string { return e.ID })
}

func (s *DocumentStore) AddSkill(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionSkills, skillList, resume.NewSkillEntry)
}

func (s *DocumentStore) UpdateSkill(ctx context.Context, id string, patch resume.SkillPatch) error {
	return update(ctx, s, resume.SectionSkills, id, skillList,
		func(e *resume.SkillEntry) string { return e.ID },
		func(e *resume.SkillEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveSkill(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionSkills, id, skillList,
		func(e *resume.SkillEntry) string { return e.ID })
}

func (s *DocumentStore) AddProject(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionProjects, projectList, resume.NewProjectEntry)
}

func (s *DocumentStore) UpdateProject(ctx context.Context, id string, patch resume.ProjectPatch) error {
	return update(ctx, s, resume.SectionProjects, id, projectList,
		func(e *resume.ProjectEntry) string { return e.ID },
		func(e *resume.ProjectEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveProject(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionProjects, id, projectList,
		func(e *resume.ProjectEntry) string { return e.ID })
}

func (s *DocumentStore) AddAward(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionAwards, awardList, resume.NewAwardEntry)
}

func (s *DocumentStore) UpdateAward(ctx context.Context, id string, patch resume.AwardPatch) error {
	return update(ctx, s, resume.SectionAwards, id, awardList,
		func(e *resume.AwardEntry) string { return e.ID },
		func(e *resume.AwardEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveAward(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionAwards, id, awardList,
		func(e *resume.AwardEntry) string { return e.ID })
}

func (s *DocumentStore) AddLanguage(ctx context.Context) (string, error) {
	return add(ctx, s, resume.SectionLanguages, languageList, resume.NewLanguageEntry)
}

func (s *DocumentStore) UpdateLanguage(ctx context.Context, id string, patch resume.LanguagePatch) error {
	return update(ctx, s, resume.SectionLanguages, id, languageList,
		func(e *resume.LanguageEntry) string { return e.ID },
		func(e *resume.LanguageEntry) { patch.Apply(e) })
}

func (s *DocumentStore) RemoveLanguage(ctx context.Context, id string) error {
	return remove(ctx, s, resume.SectionLanguages, id, languageList,
		func(e *resume.LanguageEntry) string { return e.ID })
}
