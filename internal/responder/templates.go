package responder

import "github.com/omamori-dev/omamori-linebot-go/internal/intent"

var defaultPools = map[Key][]string{
	KeyGreeting: {
		"こんにちは！OMAMORI です🙏\n今日も一緒にコツコツ貯めましょう。",
		"こんにちは🌸 貯金の目標を教えてください。\n例：「京都旅行のために¥50000貯めたい」",
		"お守りのようにあなたの貯金を見守ります⛩\n「ヘルプ」で使い方を確認できます。",
	},
	KeyHelp: {
		"📖 使い方\n\n" +
			"💰 目標を登録：「¥30000貯めたい」「3ヶ月で10万円貯金」\n" +
			"📊 進捗を確認：「進捗」\n" +
			"👪 家族で貯金：グループで「家族 作成」「家族 参加」「家族 目標 ¥100000」\n" +
			"🔑 相続人を登録：「相続人 0x...」\n" +
			"🌸 日本の心：「もったいない」「おもてなし」",
	},
	KeyUnknown: {
		"ごめんなさい、うまく理解できませんでした🙇\n「¥10000貯めたい」や「進捗」のように送ってみてください。",
		"すみません、その内容には対応していません。\n「ヘルプ」と送ると使い方を確認できます。",
		"🤔 よくわかりませんでした。\n例：「旅行のために¥50000貯めたい」「家族 作成」「進捗」",
	},
	KeySavingsSet: {
		"🎯 目標を登録しました！\n\n{goal}：¥{amount}\n期限：{targetDate}（あと{daysRemaining}日）\n1日あたり ¥{dailyTarget} を貯めましょう。",
		"いいですね！{goal}のために ¥{amount}。\n{daysRemaining}日間、毎日 ¥{dailyTarget} ずつ続ければ達成です💪",
		"⛩ お守りに願いを込めました。\n{goal}：¥{amount}\n目標日 {targetDate}・1日 ¥{dailyTarget}",
	},
	KeySavingsExpired: {
		"⚠️ 期限（{targetDate}）はすでに過ぎています。\n{goal} ¥{amount} を登録しましたが、今日中に ¥{dailyTarget} が必要です。\n新しい期限で登録し直すのがおすすめです。",
	},
	KeyInvalidTimeline: {
		"📅 期限の日付を読み取れませんでした。\n「2026-12-31までに¥50000貯めたい」のように送ってください。",
	},
	KeyProgress: {
		"📊 現在の目標は {members} 件です。",
		"📊 登録中の目標：{members} 件\nコツコツ続けましょう！",
	},
	KeyProgressEmpty: {
		"まだ目標がありません。\n「¥30000貯めたい」のように送って登録しましょう🎯",
	},
	KeyFamilyCreated: {
		"👪 家族グループを作成しました！\nメンバーは「家族 参加」と送って参加してください。",
		"👪 家族の貯金箱ができました。\n「家族 目標 ¥100000」で共通の目標を決めましょう。",
	},
	KeyFamilyExists: {
		"このグループにはすでに家族があります（メンバー {members} 人）。\n「家族 進捗」で状況を確認できます。",
	},
	KeyFamilyNotFound: {
		"このグループにはまだ家族がありません。\n「家族 作成」で作成してください。",
	},
	KeyFamilyNotGroup: {
		"家族の機能はグループトークで使えます👪\n家族とのグループにこのボットを招待してください。",
	},
	KeyFamilyJoined: {
		"🎉 家族に参加しました！現在のメンバーは {members} 人です。",
		"ようこそ！家族メンバーは {members} 人になりました👪",
	},
	KeyFamilyInvite: {
		"📨 家族を招待するには、このグループで「家族 参加」と送ってもらいましょう。",
	},
	KeyFamilyGoalSet: {
		"🎯 家族の目標を ¥{groupGoal} に設定しました！\n現在 ¥{totalSaved}（{percent}%）",
	},
	KeyFamilyGoalNeeded: {
		"金額を添えて送ってください。\n例：「家族 目標 ¥100000」",
	},
	KeyFamilyProgress: {
		"👪 家族の貯金\n\n¥{totalSaved} / ¥{groupGoal}（{percent}%）\nメンバー {members} 人",
		"👪 家族でここまで ¥{totalSaved} 貯まりました！\n目標 ¥{groupGoal} まで {percent}%",
	},
	KeyFamilyInfo: {
		"👪 家族で一緒に貯金できます。\n\n「家族 作成」グループを作成\n「家族 参加」メンバーに参加\n「家族 目標 ¥100000」目標を設定\n「家族 進捗」状況を確認",
	},
	KeyHeirSet: {
		"🔑 相続人のアドレスを登録しました。\n{address}",
	},
	KeyInheritanceHelp: {
		"🔑 相続人を登録するには、アドレスを添えて送ってください。\n例：「相続人 0x1234...（0x + 40 桁）」",
	},
	KeyDepositReceived: {
		"💴 {name}さんが ¥{amount} を入金しました！\n家族の合計 ¥{totalSaved} / ¥{groupGoal}（{percent}%）",
		"💴 ¥{amount} の入金がありました。\n合計 ¥{totalSaved}・目標まで {percent}%",
	},
	KeyDepositReached: {
		"🎊 おめでとうございます！家族の目標 ¥{groupGoal} を達成しました！\n合計 ¥{totalSaved}",
	},
	KeyRateLimited: {
		"⏳ メッセージが多すぎます。少し時間をおいてから送ってください。",
	},
	KeyFollow: {
		"友だち追加ありがとうございます🙏 OMAMORI です。\n「¥30000貯めたい」のように送ると、毎日の目標を計算します。",
	},

	CultureKey(intent.ValueMottainai): {
		"🍃 もったいない：物を大切にし、無駄をなくす心。\n小さな節約が大きな貯金につながります。",
		"🍃「もったいない」の心で、今日の出費をひとつ見直してみませんか？",
	},
	CultureKey(intent.ValueOmotenashi): {
		"🍵 おもてなし：相手を思いやる心。\n家族のための貯金も、おもてなしのひとつです。",
	},
	CultureKey(intent.ValueKaizen): {
		"🔧 改善：少しずつ良くしていくこと。\n1日 ¥100 の積み重ねから始めましょう。",
	},
	CultureKey(intent.ValueGanbaru): {
		"💪 がんばる：あきらめずに続けること。\nOMAMORI が毎日応援しています！",
	},
}
