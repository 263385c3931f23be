package prompt

import "text/template"

// 系统提示词，按调用类型区分。
const (
	SystemResumeWriter = "You are a professional resume writer with expertise in crafting compelling, ATS-optimized content. Your goal is to help users create resumes that stand out while remaining professional and truthful."

	SystemATSAnalyst = "You are an expert in ATS (Applicant Tracking Systems) and resume optimization. You analyze resumes for ATS compatibility and provide actionable feedback. Your response should always be in valid JSON format."

	SystemCoverLetterWriter = "You are a professional cover letter writer with expertise in creating compelling, personalized cover letters that highlight a candidate's relevant skills and experiences. Your goal is to help users create cover letters that complement their resumes and increase their chances of getting interviews."
)

const notProvided = "Not provided"

const summaryRaw = `Generate a professional summary for a resume based on the following information:

Name: {{.Name}}
Current/Latest Position: {{.Position}}
Company: {{.Company}}
Skills: {{join .Skills ", "}}

Job Description: {{or .JobDescription "` + notProvided + `"}}

Please write a concise, professional summary that highlights strengths and experience (4-5 sentences max).`

const workDescriptionRaw = `Generate a professional job description for a resume based on the following information:

Position: {{.Position}}
Company: {{.Company}}
Time Period: {{.StartDate}} to {{or .EndDate "Present"}}

Job Description: {{or .JobDescription "` + notProvided + `"}}

Please write 3-4 sentences about the role and responsibilities, focusing on achievements and impact.`

const workHighlightsRaw = `Generate 3-5 bullet points highlighting achievements and responsibilities for a resume based on:

Position: {{.Position}}
Company: {{.Company}}
Description: {{.Description}}

Job Description (if applying for a specific role): {{or .JobDescription "` + notProvided + `"}}

Please format each bullet point to start with a strong action verb and include specific achievements with metrics when possible.`

const jobMatchRaw = `Analyze this resume against the provided job description and provide tailoring recommendations:

Resume Summary: {{.Summary}}

Skills: {{join .Skills ", "}}

Work Experience:
{{range .Work}}- {{.Position}} at {{.Company}}: {{.Description}}
{{end}}
Job Description:
{{.JobDescription}}

Please provide 3-5 specific recommendations for how to tailor this resume to better match the job description. Focus on keywords, skills, and experiences that should be emphasized.`

const atsRaw = `Analyze this resume for ATS (Applicant Tracking System) compatibility.

Resume:
{{.ResumeText}}
{{if .JobDescription}}
Job Description:
{{.JobDescription}}
{{end}}
Please provide:
1. An ATS compatibility score from 0-100
2. A list of specific suggestions to improve ATS compatibility
{{- if .JobDescription}}
3. A list of key keywords from the job description and whether they appear in the resume
{{- end}}

Format your response as JSON with the following structure:
{
  "score": number,
  "suggestions": string[],
  "keywordMatches": object (optional)
}`

const coverLetterRaw = `Generate a professional cover letter based on this resume information and job details:

Resume Information:
Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Summary: {{.Summary}}

Most Recent Experience:
{{with .Latest}}Position: {{.Position}}
Company: {{.Company}}
Description: {{.Description}}{{else}}No experience provided{{end}}

Skills: {{join .Skills ", "}}

Job Details:
Position: {{.Job.Position}}
Company: {{.Job.Company}}
{{- with .Job.ContactPerson}}
Contact Person: {{.}}
{{- end}}
{{- with .Job.JobDescription}}

Job Description:
{{.}}
{{- end}}

Please create a compelling, professional cover letter that:
1. Has a formal letter format with date and address headers
2. Includes a proper greeting (using the contact person name if provided)
3. Has a strong opening paragraph that expresses interest in the position
4. Contains 2-3 body paragraphs highlighting relevant skills and experiences
5. Closes with a call to action and thank you
6. Includes a formal signature

The tone should be professional but conversational, and the letter should be no longer than one page.`

func parse(name, raw string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(raw))
}

var (
	summaryTemplate         = parse("summary", summaryRaw)
	workDescriptionTemplate = parse("work_description", workDescriptionRaw)
	workHighlightsTemplate  = parse("work_highlights", workHighlightsRaw)
	jobMatchTemplate        = parse("job_match", jobMatchRaw)
	atsTemplate             = parse("ats", atsRaw)
	coverLetterTemplate     = parse("cover_letter", coverLetterRaw)
)
