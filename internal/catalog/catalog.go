// Package catalog holds the static consulting domain catalog. Domains are
// compiled in, never user-created, and sessions reference them by ID only;
// restoring a persisted session rehydrates its domain through Lookup.
package catalog

import "github.com/vesyn/consult/internal/models"

// GeneralInquiryLabel is used when no sub-task has been selected.
const GeneralInquiryLabel = "General Inquiry"

var domains = []models.Domain{
	{
		ID:          "OD",
		Title:       "组织效能 (OD)",
		Description: "打破部门墙，通过组织诊断提升整体人效与敏捷度",
		Methodology: "麦肯锡 7S 模型",
		MentalModel: "系统思维 (整体关联性)",
		Symptoms: []string{
			"汇报关系混乱，多头管理",
			"跨部门推诿，部门墙严重",
			"决策流程太长，响应市场慢",
			"人效持续下降，大公司病",
			"总部与分公司权责不清",
		},
		Outcomes: []string{
			"组织扁平化，提升敏捷度",
			"明确责权利，减少内耗",
			"提升人均产出 (人效)",
			"打造赋能型总部",
			"实现业务闭环管理",
		},
		SubTasks: []models.SubTask{
			{ID: "O1", Label: "组织诊断 (Organization Diagnostic)"},
			{ID: "O2", Label: "定岗定编 (Headcount Planning)"},
			{ID: "O3", Label: "管控模式 (Control Model)"},
		},
	},
	{
		ID:          "SP",
		Title:       "战略人力规划",
		Description: "确保关键岗位人才供给，让组织能力跑在战略前面",
		Methodology: "尤里奇价值模型",
		MentalModel: "价值链分析 (业务影响力)",
		Symptoms: []string{
			"新业务开展找不到领军人",
			"关键岗位一旦离职就瘫痪",
			"现有团队能力跟不上战略",
			"人才梯队断层，没人接班",
			"人员冗余但关键人才缺乏",
		},
		Outcomes: []string{
			"人才供给跑在业务前面",
			"核心岗位 1:2 继任储备",
			"识别并保留高潜人才",
			"提升关键人才密度",
			"优化人才结构配置",
		},
		SubTasks: []models.SubTask{
			{ID: "S1", Label: "人才盘点 (Talent Review)"},
			{ID: "S2", Label: "人才画像 (Talent Persona)"},
			{ID: "S3", Label: "继任者计划 (Succession Planning)"},
		},
	},
	{
		ID:          "JOB",
		Title:       "岗位与职级",
		Description: "构建清晰的职级体系，实现内部公平与人才保留",
		Methodology: "美世 IPE 系统",
		MentalModel: "结构化层级与内部公平性",
		Symptoms: []string{
			"职级随意定，头衔通胀严重",
			"员工觉得没奔头，晋升无望",
			"岗位职责不清，这就该你做",
			"同工不同酬，内部不公平",
			"技术人员为了涨薪只能转管理",
		},
		Outcomes: []string{
			"建立H型双通道发展路径",
			"职级体系对标市场标准",
			"岗位价值与薪酬挂钩",
			"清晰的任职资格标准",
			"实现内部相对公平",
		},
		SubTasks: []models.SubTask{
			{ID: "J1", Label: "IPE 评估 (Position Evaluation)"},
			{ID: "J2", Label: "职级表设计 (Grading Structure)"},
			{ID: "J3", Label: "岗位说明书 (Job Description)"},
		},
	},
	{
		ID:          "COMP",
		Title:       "薪酬激励",
		Description: "设计高杠杆薪酬激励体系，精准激发核心人才动力",
		Methodology: "海氏/美世方法论",
		MentalModel: "全面薪酬与行为经济学",
		Symptoms: []string{
			"老员工工资不如新招的应届生",
			"干多干少一个样，大锅饭",
			"薪酬没竞争力，招不来牛人",
			"奖金发了大家也不满意",
			"调薪规则不透明，靠拍脑袋",
		},
		Outcomes: []string{
			"薪酬对标市场 P75 分位",
			"实现差异化激励，向奋斗者倾斜",
			"解决薪酬倒挂历史遗留问题",
			"设计高杠杆的奖金包",
			"建立科学的调薪机制",
		},
		SubTasks: []models.SubTask{
			{ID: "C1", Label: "调薪策略 (Salary Increase)"},
			{ID: "C2", Label: "奖金方案 (Bonus Scheme)"},
			{ID: "C3", Label: "股权激励 (ESOP)"},
		},
	},
	{
		ID:          "PERF",
		Title:       "绩效管理",
		Description: "将战略目标拆解到底，打造数据驱动的高绩效文化",
		Methodology: "BSC 平衡计分卡",
		MentalModel: "目标对齐与反馈闭环",
		Symptoms: []string{
			"KPI 定了没人看，年底算总账",
			"目标和公司战略两张皮",
			"管理者不敢打低分，全是好人",
			"绩效结果没用，不影响晋升",
			"指标太细太繁琐，为了考核而考核",
		},
		Outcomes: []string{
			"上下同欲，目标 100% 对齐",
			"培养管理者绩效辅导能力",
			"不仅看结果，也要看过程",
			"区分高绩效与低绩效员工",
			"激活组织活力",
		},
		SubTasks: []models.SubTask{
			{ID: "P1", Label: "OKR 设计 (Objectives & Key Results)"},
			{ID: "P2", Label: "绩效面谈 (Performance Feedback)"},
			{ID: "P3", Label: "强制分布纠偏 (Calibration)"},
		},
	},
	{
		ID:          "REC",
		Title:       "招聘配置",
		Description: "缩短招聘周期，基于胜任力模型精准识别高潜人才",
		Methodology: "行为面试法 (STAR)",
		MentalModel: "基于胜任力的评估模型",
		Symptoms: []string{
			"招人太慢，业务部门天天催",
			"面试官看眼缘，招进来不合适",
			"好不容易发 Offer 被拒了",
			"入职没几天就离职",
			"公司没名气，简历质量差",
		},
		Outcomes: []string{
			"缩短招聘周期 (TTF)",
			"统一面试标准，精准识人",
			"提升候选人面试体验",
			"提升试用期转正率",
			"打造有吸引力的雇主品牌",
		},
		SubTasks: []models.SubTask{
			{ID: "R1", Label: "JD 优化 (Job Description)"},
			{ID: "R2", Label: "面试官题库 (Interview Questions)"},
			{ID: "R3", Label: "雇主品牌 (Employer Branding)"},
		},
	},
	{
		ID:          "L&D",
		Title:       "人才发展 (L&D)",
		Description: "构建领导力梯队，将培训投入转化为实际业务产出",
		Methodology: "拉姆查兰领导力梯队",
		MentalModel: "成长型思维 & 70-20-10法则",
		Symptoms: []string{
			"培训听着激动，回去一动不动",
			"业务部门觉得培训浪费时间",
			"内部经验沉淀不下来",
			"管理者自己强，不会带团队",
			"新人上手太慢",
		},
		Outcomes: []string{
			"培训直接赋能业务痛点",
			"沉淀内部最佳实践案例",
			"建立内部讲师 (TTT) 体系",
			"加速新员工胜任速度",
			"打造学习型组织文化",
		},
		SubTasks: []models.SubTask{
			{ID: "L1", Label: "领导力梯队 (Leadership Pipeline)"},
			{ID: "L2", Label: "内训师体系 (Internal Trainer)"},
			{ID: "L3", Label: "IDP 计划 (Individual Development)"},
		},
	},
	{
		ID:          "CM",
		Title:       "变革管理",
		Description: "降低变革阻力，在动荡期快速统一全员认知与行动",
		Methodology: "科特八步变革",
		MentalModel: "变革心理学 (ADKAR)",
		Symptoms: []string{
			"老员工抵触新政策，推不动",
			"小道消息满天飞，人心惶惶",
			"并购后两拨人融不到一块",
			"变革只有口号，没有动作",
			"业务受变革影响，业绩下滑",
		},
		Outcomes: []string{
			"平稳过渡，降低变革阻力",
			"统一思想，建立变革紧迫感",
			"实现文化融合与认同",
			"快速取得短期速赢 (Quick Wins)",
			"保障核心人才稳定",
		},
		SubTasks: []models.SubTask{
			{ID: "M1", Label: "并购整合 (M&A Integration)"},
			{ID: "M2", Label: "文化重塑 (Culture Transformation)"},
			{ID: "M3", Label: "变革阻力诊断 (Resistance Diagnosis)"},
		},
	},
	{
		ID:          "ER",
		Title:       "员工关系",
		Description: "提升组织敬业度，构建零风险的心理安全契约",
		Methodology: "盖洛普 Q12",
		MentalModel: "心理契约与心理安全感",
		Symptoms: []string{
			"员工士气低落，都在摸鱼",
			"裁员处理不当，有仲裁风险",
			"员工不敢说真话，氛围压抑",
			"核心员工被竞争对手挖角",
			"加班严重，员工怨气大",
		},
		Outcomes: []string{
			"提升员工敬业度 (Q12)",
			"合规用工，零劳动仲裁",
			"建立心理安全感",
			"顺畅的员工沟通渠道",
			"提升员工满意度与保留率",
		},
		SubTasks: []models.SubTask{
			{ID: "E1", Label: "敬业度调查 (Engagement Survey)"},
			{ID: "E2", Label: "劳动法风控 (Compliance Risk)"},
			{ID: "E3", Label: "离职面谈 (Exit Interview)"},
		},
	},
	{
		ID:          "DIGI",
		Title:       "HR 数字化",
		Description: "从“表哥表姐”转型数据驱动，用 AI 重构 HR 服务体验",
		Methodology: "Gartner 数字化模型",
		MentalModel: "敏捷转型与数据流动性",
		Symptoms: []string{
			"HR 每天忙着做 Excel 表，效率低",
			"系统太多，数据不通，全是孤岛",
			"想看数据分析，系统里导不出来",
			"员工吐槽系统太难用，体验差",
			"想用 AI 但不知道从哪入手",
		},
		Outcomes: []string{
			"实现 HR 流程自动化",
			"打通数据孤岛，数据驱动决策",
			"提升员工端 (App) 使用体验",
			"AI 辅助员工服务与招聘",
			"构建一体化 HR 数字化平台",
		},
		SubTasks: []models.SubTask{
			{ID: "D1", Label: "AI Agent 落地 (AI Implementation)"},
			{ID: "D2", Label: "数据资产地图 (Data Mapping)"},
			{ID: "D3", Label: "HR 系统选型 (System Selection)"},
		},
	},
}

// Domains returns the full catalog in display order.
func Domains() []models.Domain {
	out := make([]models.Domain, len(domains))
	copy(out, domains)
	return out
}

// Lookup finds a domain by ID. A missing ID is not an error; callers that
// restore persisted sessions proceed with no domain selected.
func Lookup(id string) (models.Domain, bool) {
	for _, d := range domains {
		if d.ID == id {
			return d, true
		}
	}
	return models.Domain{}, false
}

// LookupSubTask finds a sub-task within a domain by ID.
func LookupSubTask(d models.Domain, subTaskID string) (models.SubTask, bool) {
	for _, s := range d.SubTasks {
		if s.ID == subTaskID {
			return s, true
		}
	}
	return models.SubTask{}, false
}
